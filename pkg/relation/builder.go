package relation

import (
	"errors"
	"strings"

	"github.com/OFFIS-RIT/relex/pkg/features"
	"github.com/OFFIS-RIT/relex/pkg/sentence"
)

// EntityPair is an ordered pair of normalized entity identifiers.
type EntityPair struct {
	First  string
	Second string
}

// KnowledgeBase holds the distant supervision relations. Forward maps
// (e1, e2) to the relation label, Reverse maps (e2, e1) to the same label.
type KnowledgeBase struct {
	Forward map[EntityPair]string
	Reverse map[EntityPair]string
}

// NewKnowledgeBase returns an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		Forward: make(map[EntityPair]string),
		Reverse: make(map[EntityPair]string),
	}
}

// Add records a relation between e1 and e2.
func (kb *KnowledgeBase) Add(e1, e2, rel string) {
	kb.Forward[EntityPair{e1, e2}] = rel
	kb.Reverse[EntityPair{e2, e1}] = rel
}

// Len returns the number of forward relations.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.Forward)
}

// Label returns Positive when any identifier pair of the two endpoints is a
// known relation. Symmetric relations also accept the swapped order.
func (kb *KnowledgeBase) Label(startIDs, endIDs map[string]struct{}, symmetric bool) int {
	if kb == nil {
		return Negative
	}
	for s := range startIDs {
		for e := range endIDs {
			if _, ok := kb.Forward[EntityPair{s, e}]; ok {
				return Positive
			}
			if !symmetric {
				continue
			}
			if _, ok := kb.Reverse[EntityPair{s, e}]; ok {
				return Positive
			}
		}
	}
	return Negative
}

// Config describes which candidate pairs are turned into instances.
type Config struct {
	// Entity1 and Entity2 are the NER tags of the start and end mention.
	Entity1 string
	Entity2 string
	// Entity1IDs and Entity2IDs restrict the accepted normalized
	// identifiers of each endpoint. A nil set accepts everything.
	Entity1IDs map[string]struct{}
	Entity2IDs map[string]struct{}
	Symmetric  bool
}

func (c Config) accepts(inst *Instance) bool {
	if c.Entity1IDs != nil && intersectionSize(inst.StartIDs(), c.Entity1IDs) == 0 {
		return false
	}
	if c.Entity2IDs != nil && intersectionSize(inst.EndIDs(), c.Entity2IDs) == 0 {
		return false
	}
	return true
}

func (c Config) candidates(sentences []*sentence.Sentence) []*Instance {
	var out []*Instance
	for _, cand := range GenerateCandidates(sentences, c.Entity1, c.Entity2) {
		inst := &Instance{
			ID:       len(out),
			Sentence: cand.Sentence,
			Start:    cand.Pair.Start,
			End:      cand.Pair.End,
		}
		if !c.accepts(inst) {
			continue
		}
		inst.Bags = ExtractBags(cand.Sentence, inst.Start, inst.End)
		out = append(out, inst)
	}
	return out
}

// BuildTrainingInstances builds labeled instances and the dictionaries
// learned from them.
func BuildTrainingInstances(sentences []*sentence.Sentence, kb *KnowledgeBase, cfg Config) ([]*Instance, features.Set) {
	instances := cfg.candidates(sentences)

	sb := features.NewSetBuilder()
	for _, inst := range instances {
		sb.Observe(inst.Bags)
	}
	set := sb.Build()

	for _, inst := range instances {
		inst.Features = set.Vectorize(inst.Bags)
		inst.Label = kb.Label(inst.StartIDs(), inst.EndIDs(), cfg.Symmetric)
	}
	return instances, set
}

// BuildTestInstances builds labeled instances against existing
// dictionaries. Features unknown to the dictionaries are dropped.
func BuildTestInstances(sentences []*sentence.Sentence, set features.Set, kb *KnowledgeBase, cfg Config) []*Instance {
	instances := cfg.candidates(sentences)
	for _, inst := range instances {
		inst.Features = set.Vectorize(inst.Bags)
		inst.Label = kb.Label(inst.StartIDs(), inst.EndIDs(), cfg.Symmetric)
	}
	return instances
}

// BuildPredictInstances builds unlabeled instances against existing
// dictionaries.
func BuildPredictInstances(sentences []*sentence.Sentence, set features.Set, cfg Config) []*Instance {
	instances := cfg.candidates(sentences)
	for _, inst := range instances {
		inst.Features = set.Vectorize(inst.Bags)
	}
	return instances
}

// ExtractBags derives the raw features of the pair (start, end). A pair
// without a dependency path only gets between-word features. The sentence
// must have its dependency matrix built.
func ExtractBags(s *sentence.Sentence, start, end int) features.Bags {
	var bags features.Bags

	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	for id := lo + 1; id < hi; id++ {
		bags.BetweenWord = append(bags.BetweenWord, lemma(s.Token(id)))
	}

	path, err := s.ShortestPath(start, end)
	if errors.Is(err, sentence.ErrMatrixNotBuilt) {
		panic(err)
	}
	if err != nil || len(path) < 2 {
		return bags
	}

	types := s.PathTypes(path)
	bags.DepPath = []string{strings.Join(types, "|")}
	bags.DepElement = append(bags.DepElement, types...)
	for _, id := range path[1 : len(path)-1] {
		if id == sentence.RootID {
			continue
		}
		w := lemma(s.Token(id))
		bags.DepWord = append(bags.DepWord, w)
		bags.DepElement = append(bags.DepElement, w)
	}
	return bags
}

func lemma(t *sentence.Token) string {
	if t.Lemma != "" {
		return strings.ToLower(t.Lemma)
	}
	return strings.ToLower(t.Word)
}
