package sentence

import "strings"

// Separator joins multiple NER tags or normalized identifiers carried by a
// single token, e.g. a gene that is annotated as both HUMAN and VIRAL.
const Separator = "|"

// RootID is the position of the synthetic ROOT token in every sentence.
const RootID = 0

// Token represents a single word of a parsed sentence.
//
// ID is the 1-based position of the token in its sentence. Position 0 is
// reserved for the synthetic ROOT token, which has no lexical content.
type Token struct {
	ID            int    `json:"id"`
	Word          string `json:"word"`
	Lemma         string `json:"lemma"`
	CharBegin     int    `json:"char_begin"`
	CharEnd       int    `json:"char_end"`
	POS           string `json:"pos"`
	NER           string `json:"ner"`
	NormalizedNER string `json:"normalized_ner,omitempty"`
}

func newRoot() *Token {
	return &Token{ID: RootID, Word: "ROOT", Lemma: "ROOT"}
}

// NERTags returns the NER tags of the token. Empty tags are skipped.
func (t *Token) NERTags() []string {
	return splitNonEmpty(t.NER)
}

// HasNormalizedID reports whether the token carries at least one
// normalized entity identifier.
func (t *Token) HasNormalizedID() bool {
	return t.NormalizedNER != ""
}

// NormalizedIDs returns the set of normalized entity identifiers of the
// token. A token without identifiers yields an empty set.
func (t *Token) NormalizedIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range splitNonEmpty(t.NormalizedNER) {
		ids[id] = struct{}{}
	}
	return ids
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, Separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Dependency is a directed, labeled edge between two tokens of the same
// sentence. The token pointers are owned by the sentence.
type Dependency struct {
	Type      string
	Governor  *Token
	Dependent *Token
}
