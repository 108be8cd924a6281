package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/relex/pkg/relation"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// relationArgs are the trailing positional arguments shared by every mode:
// ENTITY1 E1FILE E1COL ENTITY2 E2FILE E2COL SYMMETRIC.
type relationArgs struct {
	Entity1   string
	E1File    string
	E1Col     int
	Entity2   string
	E2File    string
	E2Col     int
	Symmetric bool
}

const relationArgCount = 7

func parseRelationArgs(args []string) (relationArgs, error) {
	if len(args) != relationArgCount {
		return relationArgs{}, fmt.Errorf("expected %d relation arguments, got %d", relationArgCount, len(args))
	}
	e1Col, err := parseColumn("E1COL", args[2])
	if err != nil {
		return relationArgs{}, err
	}
	e2Col, err := parseColumn("E2COL", args[5])
	if err != nil {
		return relationArgs{}, err
	}
	return relationArgs{
		Entity1:   upper.String(args[0]),
		E1File:    args[1],
		E1Col:     e1Col,
		Entity2:   upper.String(args[3]),
		E2File:    args[4],
		E2Col:     e2Col,
		Symmetric: parseSymmetric(args[6]),
	}, nil
}

func (r relationArgs) config() relation.Config {
	return relation.Config{
		Entity1:   r.Entity1,
		Entity2:   r.Entity2,
		Symmetric: r.Symmetric,
	}
}

// kbArgs locate the distant supervision table: KB KB_E1COL KB_E2COL KB_RELCOL.
type kbArgs struct {
	Path   string
	E1Col  int
	E2Col  int
	RelCol int
}

const kbArgCount = 4

func parseKBArgs(args []string) (kbArgs, error) {
	if len(args) != kbArgCount {
		return kbArgs{}, fmt.Errorf("expected %d knowledge base arguments, got %d", kbArgCount, len(args))
	}
	kb := kbArgs{Path: args[0]}
	var err error
	if kb.E1Col, err = parseColumn("KB_E1COL", args[1]); err != nil {
		return kbArgs{}, err
	}
	if kb.E2Col, err = parseColumn("KB_E2COL", args[2]); err != nil {
		return kbArgs{}, err
	}
	if kb.RelCol, err = parseColumn("KB_RELCOL", args[3]); err != nil {
		return kbArgs{}, err
	}
	return kb, nil
}

func parseColumn(name, s string) (int, error) {
	col, err := strconv.Atoi(s)
	if err != nil || col < 0 {
		return 0, fmt.Errorf("%s must be a non-negative column index, got %q", name, s)
	}
	return col, nil
}

func parseSymmetric(s string) bool {
	switch upper.String(s) {
	case "TRUE", "Y", "YES":
		return true
	}
	return false
}

// normalizeMode rewrites the first argument naming a mode in any case to
// its canonical name, so DISTANT_TRAIN and distant_train run the same
// command.
func normalizeMode(args []string, modes []string) []string {
	out := append([]string(nil), args...)
	for i := 1; i < len(out); i++ {
		for _, m := range modes {
			if strings.EqualFold(out[i], m) {
				out[i] = m
				return out
			}
		}
	}
	return out
}
