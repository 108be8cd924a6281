package features

// Bags holds the raw, unindexed features of one relation instance.
type Bags struct {
	// DepPath is the dependency path between the two mentions, e.g. "nsubj|-dobj".
	DepPath []string
	// DepWord holds the lemmas of the tokens inside the dependency path.
	DepWord []string
	// DepElement holds every label and lemma element of the path.
	DepElement []string
	// BetweenWord holds the lemmas of the tokens between the two mentions.
	BetweenWord []string
}

// Set is the group of fold-local dictionaries. The feature space is the
// concatenation of DepPath, DepWord, DepElement and BetweenWord, in that order.
type Set struct {
	DepPath     *Dictionary `json:"dep_path"`
	DepWord     *Dictionary `json:"dep_word"`
	DepElement  *Dictionary `json:"dep_element"`
	BetweenWord *Dictionary `json:"between_word"`
}

// Dim returns the dimension of the feature space.
func (s Set) Dim() int {
	return s.DepPath.Len() + s.DepWord.Len() + s.DepElement.Len() + s.BetweenWord.Len()
}

// Vectorize maps bags onto the feature space. Features missing from the
// dictionaries are dropped.
func (s Set) Vectorize(b Bags) Vector {
	var indices []int
	offset := 0
	for _, part := range []struct {
		dict  *Dictionary
		names []string
	}{
		{s.DepPath, b.DepPath},
		{s.DepWord, b.DepWord},
		{s.DepElement, b.DepElement},
		{s.BetweenWord, b.BetweenWord},
	} {
		for _, name := range part.names {
			if idx, ok := part.dict.Lookup(name); ok {
				indices = append(indices, offset+idx)
			}
		}
		offset += part.dict.Len()
	}
	return NewVector(indices)
}

// SetBuilder accumulates the four dictionaries from training bags.
type SetBuilder struct {
	depPath     *Builder
	depWord     *Builder
	depElement  *Builder
	betweenWord *Builder
}

func NewSetBuilder() *SetBuilder {
	return &SetBuilder{
		depPath:     NewBuilder(),
		depWord:     NewBuilder(),
		depElement:  NewBuilder(),
		betweenWord: NewBuilder(),
	}
}

// Observe registers every feature of b.
func (sb *SetBuilder) Observe(b Bags) {
	for _, n := range b.DepPath {
		sb.depPath.Add(n)
	}
	for _, n := range b.DepWord {
		sb.depWord.Add(n)
	}
	for _, n := range b.DepElement {
		sb.depElement.Add(n)
	}
	for _, n := range b.BetweenWord {
		sb.betweenWord.Add(n)
	}
}

// Build freezes the dictionaries.
func (sb *SetBuilder) Build() Set {
	return Set{
		DepPath:     sb.depPath.Build(),
		DepWord:     sb.depWord.Build(),
		DepElement:  sb.depElement.Build(),
		BetweenWord: sb.betweenWord.Build(),
	}
}
