package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/relex/pkg/loader/csv"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/relation"
)

// NoFile is the path value that disables an optional table.
const NoFile = "NONE"

// LoadIDList reads the set of normalized entity ids in column col (0-based)
// of a TSV file. The path NONE, in any case, yields a nil set meaning
// "accept every id".
func LoadIDList(ctx context.Context, src Source, path string, col int) (map[string]struct{}, error) {
	if strings.EqualFold(path, NoFile) {
		return nil, nil
	}
	rows, err := readTSV(ctx, src, path)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if id, ok := csv.Column(row, col); ok {
			ids[id] = struct{}{}
		}
	}
	logger.Debug("[Loader] Id list loaded", "path", path, "ids", len(ids))
	return ids, nil
}

// LoadDistantKB reads the distant supervision knowledge base from a TSV
// file: columns e1 and e2 hold the entity ids, rel the relation label. Rows
// missing any of the three are skipped.
func LoadDistantKB(ctx context.Context, src Source, path string, e1, e2, rel int) (*relation.KnowledgeBase, error) {
	rows, err := readTSV(ctx, src, path)
	if err != nil {
		return nil, err
	}

	kb := relation.NewKnowledgeBase()
	skipped := 0
	for _, row := range rows {
		a, okA := csv.Column(row, e1)
		b, okB := csv.Column(row, e2)
		r, okR := csv.Column(row, rel)
		if !okA || !okB || !okR {
			skipped++
			continue
		}
		kb.Add(a, b, r)
	}
	if skipped > 0 {
		logger.Warn("[Loader] Skipped incomplete knowledge base rows", "path", path, "rows", skipped)
	}
	logger.Debug("[Loader] Knowledge base loaded", "path", path, "relations", kb.Len())
	return kb, nil
}

func readTSV(ctx context.Context, src Source, path string) ([][]string, error) {
	content, err := readMaybeGzip(ctx, src, path)
	if err != nil {
		return nil, err
	}
	rows, err := csv.ParseTSV(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
