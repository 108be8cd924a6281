package loader

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/sentence"
)

// Dependency annotations are taken from the first kind present, in this order.
var dependencyPreference = []string{
	"collapsed-ccprocessed-dependencies",
	"basic-dependencies",
}

type coreNLPDocument struct {
	Sentences []coreNLPSentence `xml:"document>sentences>sentence"`
}

type coreNLPSentence struct {
	ID           string                `xml:"id,attr"`
	Tokens       []coreNLPToken        `xml:"tokens>token"`
	Dependencies []coreNLPDependencies `xml:"dependencies"`
}

type coreNLPToken struct {
	ID            int    `xml:"id,attr"`
	Word          string `xml:"word"`
	Lemma         string `xml:"lemma"`
	CharBegin     int    `xml:"CharacterOffsetBegin"`
	CharEnd       int    `xml:"CharacterOffsetEnd"`
	POS           string `xml:"POS"`
	NER           string `xml:"NER"`
	NormalizedNER string `xml:"NormalizedNER"`
}

type coreNLPDependencies struct {
	Type string       `xml:"type,attr"`
	Deps []coreNLPDep `xml:"dep"`
}

type coreNLPIndex struct {
	Idx int `xml:"idx,attr"`
}

type coreNLPDep struct {
	Type      string       `xml:"type,attr"`
	Governor  coreNLPIndex `xml:"governor"`
	Dependent coreNLPIndex `xml:"dependent"`
}

func (s coreNLPSentence) dependencies() []rawDependency {
	if len(s.Dependencies) == 0 {
		return nil
	}
	chosen := s.Dependencies[0]
	found := false
	for _, kind := range dependencyPreference {
		for _, d := range s.Dependencies {
			if d.Type == kind {
				chosen, found = d, true
				break
			}
		}
		if found {
			break
		}
	}

	out := make([]rawDependency, len(chosen.Deps))
	for i, d := range chosen.Deps {
		out[i] = rawDependency{Type: d.Type, Governor: d.Governor.Idx, Dependent: d.Dependent.Idx}
	}
	return out
}

// ParseCoreNLP decodes a Stanford CoreNLP XML document. Sentence ids are
// prefixed with key.
func ParseCoreNLP(key string, content []byte) ([]*sentence.Sentence, error) {
	var doc coreNLPDocument
	if err := xml.NewDecoder(bytes.NewReader(content)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode CoreNLP document %s: %w", key, err)
	}

	out := make([]*sentence.Sentence, 0, len(doc.Sentences))
	for _, xs := range doc.Sentences {
		tokens := make([]sentence.Token, len(xs.Tokens))
		for i, t := range xs.Tokens {
			tokens[i] = sentence.Token{
				ID:            t.ID,
				Word:          t.Word,
				Lemma:         t.Lemma,
				CharBegin:     t.CharBegin,
				CharEnd:       t.CharEnd,
				POS:           t.POS,
				NER:           t.NER,
				NormalizedNER: t.NormalizedNER,
			}
		}
		s, err := buildSentence(key+":"+xs.ID, tokens, xs.dependencies())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type rawDependency struct {
	Type      string `json:"type"`
	Governor  int    `json:"governor"`
	Dependent int    `json:"dependent"`
}

// buildSentence assembles a sentence and builds its dependency matrix.
// Dependencies pointing outside the sentence are skipped.
func buildSentence(id string, tokens []sentence.Token, deps []rawDependency) (*sentence.Sentence, error) {
	s := sentence.New(id)
	for i := range tokens {
		if err := s.AddToken(&tokens[i]); err != nil {
			return nil, err
		}
	}
	for _, d := range deps {
		gov, dep := s.Token(d.Governor), s.Token(d.Dependent)
		if gov == nil || dep == nil {
			logger.Debug("[Loader] Skipping dependency outside of sentence", "sentence", id, "type", d.Type)
			continue
		}
		if err := s.AddDependency(sentence.Dependency{Type: d.Type, Governor: gov, Dependent: dep}); err != nil {
			return nil, err
		}
	}
	if err := s.BuildDependencyMatrix(); err != nil {
		return nil, err
	}
	return s, nil
}
