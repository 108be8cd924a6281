package sentence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrTokenID is returned when a token is added out of position.
	ErrTokenID = errors.New("token id does not match its position")
	// ErrMatrixNotBuilt is raised when the dependency matrix is queried
	// before BuildDependencyMatrix was called.
	ErrMatrixNotBuilt = errors.New("dependency matrix not built")
	// ErrMatrixBuilt is returned when the dependency matrix is built twice
	// or a dependency is added after the build.
	ErrMatrixBuilt = errors.New("dependency matrix already built")
	// ErrNoPath is returned when two tokens are not connected in the
	// dependency graph.
	ErrNoPath = errors.New("no dependency path between tokens")
)

// Span is an ordered list of contiguous token ids forming one entity mention.
type Span []int

// First returns the smallest token id of the span.
func (s Span) First() int { return s[0] }

// Last returns the largest token id of the span.
func (s Span) Last() int { return s[len(s)-1] }

// Pair is a candidate (start, end) token pair between two mentions.
type Pair struct {
	Start int
	End   int
}

// Sentence owns the tokens of one parsed sentence, their dependencies and
// the entity mentions found among them.
type Sentence struct {
	ID           string
	Tokens       []*Token
	Dependencies []Dependency

	// Entities maps an NER tag to its mention spans, ordered by token id.
	Entities map[string][]Span

	matrix [][]string
}

// New creates an empty sentence holding only the ROOT token.
func New(id string) *Sentence {
	return &Sentence{
		ID:       id,
		Tokens:   []*Token{newRoot()},
		Entities: make(map[string][]Span),
	}
}

// Len returns the number of tokens, ROOT excluded.
func (s *Sentence) Len() int {
	return len(s.Tokens) - 1
}

// Token returns the token at the given position. Position 0 is ROOT.
func (s *Sentence) Token(id int) *Token {
	if id < 0 || id >= len(s.Tokens) {
		return nil
	}
	return s.Tokens[id]
}

// AddToken appends t to the sentence and records it in the entity map. A
// token continues the previous mention of a tag only when the previously
// appended token carries the same tag and the same normalized identifiers.
// Tokens without identifiers always start a new single-token mention.
func (s *Sentence) AddToken(t *Token) error {
	if t == nil {
		return fmt.Errorf("sentence %s: nil token", s.ID)
	}
	if t.ID != len(s.Tokens) {
		return fmt.Errorf("sentence %s: token %q has id %d, expected %d: %w", s.ID, t.Word, t.ID, len(s.Tokens), ErrTokenID)
	}
	if s.matrix != nil {
		return fmt.Errorf("sentence %s: %w", s.ID, ErrMatrixBuilt)
	}

	prev := s.Tokens[len(s.Tokens)-1]
	s.Tokens = append(s.Tokens, t)

	for _, tag := range t.NERTags() {
		spans := s.Entities[tag]
		if continuesMention(prev, t, tag, spans) {
			spans[len(spans)-1] = append(spans[len(spans)-1], t.ID)
			continue
		}
		s.Entities[tag] = append(spans, Span{t.ID})
	}

	return nil
}

func continuesMention(prev, t *Token, tag string, spans []Span) bool {
	if !t.HasNormalizedID() || t.NormalizedNER != prev.NormalizedNER {
		return false
	}
	if len(spans) == 0 || spans[len(spans)-1].Last() != prev.ID {
		return false
	}
	return slices.Contains(prev.NERTags(), tag)
}

// AddDependency appends d to the dependency list. The matrix is not touched.
func (s *Sentence) AddDependency(d Dependency) error {
	if s.matrix != nil {
		return fmt.Errorf("sentence %s: %w", s.ID, ErrMatrixBuilt)
	}
	if !s.owns(d.Governor) || !s.owns(d.Dependent) {
		return fmt.Errorf("sentence %s: dependency %q references a foreign token: %w", s.ID, d.Type, ErrTokenID)
	}
	s.Dependencies = append(s.Dependencies, d)
	return nil
}

func (s *Sentence) owns(t *Token) bool {
	return t != nil && t.ID >= 0 && t.ID < len(s.Tokens) && s.Tokens[t.ID] == t
}

// BuildDependencyMatrix fills the square governor→dependent label matrix.
// The forward label always wins; the reverse cell receives "-label" only
// when it is still empty, so insertion order decides between reverse labels.
func (s *Sentence) BuildDependencyMatrix() error {
	if s.matrix != nil {
		return fmt.Errorf("sentence %s: %w", s.ID, ErrMatrixBuilt)
	}

	n := len(s.Tokens)
	matrix := make([][]string, n)
	for i := range matrix {
		matrix[i] = make([]string, n)
	}

	for _, d := range s.Dependencies {
		g, dep := d.Governor.ID, d.Dependent.ID
		matrix[g][dep] = d.Type
		if matrix[dep][g] == "" {
			matrix[dep][g] = "-" + d.Type
		}
	}

	s.matrix = matrix
	return nil
}

// HasMatrix reports whether BuildDependencyMatrix has been called.
func (s *Sentence) HasMatrix() bool {
	return s.matrix != nil
}

// DependencyType returns the edge label from token i to token j, or "" when
// there is no direct edge. It panics with ErrMatrixNotBuilt when the matrix
// has not been built.
func (s *Sentence) DependencyType(i, j int) string {
	if s.matrix == nil {
		panic(fmt.Errorf("sentence %s: %w", s.ID, ErrMatrixNotBuilt))
	}
	return s.matrix[i][j]
}

// ShortestPath returns the token ids on a shortest dependency path from
// start to end, both included. Neighbours are explored in ascending token
// order so ties always resolve to the same path.
func (s *Sentence) ShortestPath(start, end int) ([]int, error) {
	if s.matrix == nil {
		return nil, fmt.Errorf("sentence %s: %w", s.ID, ErrMatrixNotBuilt)
	}
	n := len(s.matrix)
	if start < 0 || start >= n || end < 0 || end >= n {
		return nil, fmt.Errorf("sentence %s: tokens %d-%d out of range: %w", s.ID, start, end, ErrTokenID)
	}
	if start == end {
		return []int{start}, nil
	}

	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	prev[start] = start

	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := 0; next < n; next++ {
			if prev[next] != -1 || s.matrix[cur][next] == "" {
				continue
			}
			prev[next] = cur
			if next == end {
				return unwind(prev, start, end), nil
			}
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("sentence %s: %d-%d: %w", s.ID, start, end, ErrNoPath)
}

func unwind(prev []int, start, end int) []int {
	path := []int{end}
	for cur := end; cur != start; {
		cur = prev[cur]
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// PathTypes returns the edge labels along a token path.
func (s *Sentence) PathTypes(path []int) []string {
	if len(path) < 2 {
		return nil
	}
	types := make([]string, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		types = append(types, s.DependencyType(path[i-1], path[i]))
	}
	return types
}

// GenerateEntityPairs enumerates one token pair for every combination of a
// type1 mention with a type2 mention, choosing the endpoints that face each
// other across the two mentions. ok is false when either type does not
// occur in the sentence, which is different from an empty result.
func (s *Sentence) GenerateEntityPairs(type1, type2 string) (pairs []Pair, ok bool) {
	spans1, ok1 := s.Entities[type1]
	spans2, ok2 := s.Entities[type2]
	if !ok1 || !ok2 {
		return nil, false
	}

	pairs = make([]Pair, 0, len(spans1)*len(spans2))
	for _, a := range spans1 {
		for _, b := range spans2 {
			if slices.Equal(a, b) {
				continue
			}
			if a.Last() > b.Last() {
				pairs = append(pairs, Pair{Start: a.First(), End: b.Last()})
			} else {
				pairs = append(pairs, Pair{Start: a.Last(), End: b.First()})
			}
		}
	}
	return pairs, true
}

// SpanOf returns the mention span of the given tag containing token id.
func (s *Sentence) SpanOf(tag string, id int) (Span, bool) {
	for _, span := range s.Entities[tag] {
		if slices.Contains(span, id) {
			return span, true
		}
	}
	return nil, false
}

// Words returns the words of the given token ids.
func (s *Sentence) Words(ids []int) []string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if t := s.Token(id); t != nil {
			words = append(words, t.Word)
		}
	}
	return words
}

// String returns the sentence text, ROOT excluded.
func (s *Sentence) String() string {
	words := make([]string, 0, s.Len())
	for _, t := range s.Tokens[1:] {
		words = append(words, t.Word)
	}
	return strings.Join(words, " ")
}
