package relation

import (
	"github.com/OFFIS-RIT/relex/pkg/features"
	"github.com/OFFIS-RIT/relex/pkg/sentence"
)

// Labels of a relation instance.
const (
	Negative = 0
	Positive = 1
)

// Instance is one candidate mention pair inside a sentence, the unit the
// classifier trains and predicts on. ID is unique within one build and is
// used wherever instances are keyed.
type Instance struct {
	ID       int
	Sentence *sentence.Sentence
	Start    int
	End      int
	Bags     features.Bags
	Features features.Vector
	Label    int
}

// StartIDs returns the normalized identifiers of the start token.
func (i *Instance) StartIDs() map[string]struct{} {
	return tokenIDs(i.Sentence, i.Start)
}

// EndIDs returns the normalized identifiers of the end token.
func (i *Instance) EndIDs() map[string]struct{} {
	return tokenIDs(i.Sentence, i.End)
}

func tokenIDs(s *sentence.Sentence, id int) map[string]struct{} {
	t := s.Token(id)
	if t == nil {
		return map[string]struct{}{}
	}
	return t.NormalizedIDs()
}

// Candidate is a candidate token pair in a sentence, before features and
// labels are attached.
type Candidate struct {
	Sentence *sentence.Sentence
	Pair     sentence.Pair
}

// GenerateCandidates enumerates the candidate pairs between entity types
// type1 and type2 across sentences. Sentences in which the pair of types is
// not applicable contribute nothing.
func GenerateCandidates(sentences []*sentence.Sentence, type1, type2 string) []Candidate {
	var out []Candidate
	for _, s := range sentences {
		pairs, ok := s.GenerateEntityPairs(type1, type2)
		if !ok {
			continue
		}
		for _, p := range pairs {
			out = append(out, Candidate{Sentence: s, Pair: p})
		}
	}
	return out
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
