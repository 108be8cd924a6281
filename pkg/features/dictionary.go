package features

import "encoding/json"

// Dictionary maps feature names to dense indices. It is immutable: build
// it with a Builder from training data only, then share it freely.
type Dictionary struct {
	index map[string]int
	names []string
}

// Builder accumulates feature names in first-seen order.
type Builder struct {
	index map[string]int
	names []string
}

// NewBuilder returns an empty dictionary builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Add registers name and returns its index.
func (b *Builder) Add(name string) int {
	if idx, ok := b.index[name]; ok {
		return idx
	}
	idx := len(b.names)
	b.index[name] = idx
	b.names = append(b.names, name)
	return idx
}

// Build returns the immutable dictionary. The builder must not be used
// afterwards.
func (b *Builder) Build() *Dictionary {
	d := &Dictionary{index: b.index, names: b.names}
	b.index, b.names = nil, nil
	return d
}

// NewDictionary builds a dictionary from names in index order.
func NewDictionary(names ...string) *Dictionary {
	b := NewBuilder()
	for _, n := range names {
		b.Add(n)
	}
	return b.Build()
}

// Lookup returns the index of name. Unknown names are reported as absent.
func (d *Dictionary) Lookup(name string) (int, bool) {
	if d == nil {
		return 0, false
	}
	idx, ok := d.index[name]
	return idx, ok
}

// Name returns the feature name at index.
func (d *Dictionary) Name(idx int) string {
	if d == nil || idx < 0 || idx >= len(d.names) {
		return ""
	}
	return d.names[idx]
}

// Len returns the number of features.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

func (d *Dictionary) MarshalJSON() ([]byte, error) {
	names := []string{}
	if d != nil && d.names != nil {
		names = d.names
	}
	return json.Marshal(names)
}

func (d *Dictionary) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*d = *NewDictionary(names...)
	return nil
}
