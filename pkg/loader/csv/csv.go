package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseTSV parses tab separated content into rows. Blank lines and lines
// starting with '#' are skipped; rows may have differing lengths.
func ParseTSV(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse TSV: %w", err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Column returns the value of column col, or "" with false when the row is
// too short or the cell is empty.
func Column(row []string, col int) (string, bool) {
	if col < 0 || col >= len(row) || row[col] == "" {
		return "", false
	}
	return row[col], true
}
