package features

import "sort"

// Entry is one non-zero component of a sparse vector.
type Entry struct {
	Index int     `json:"i"`
	Value float64 `json:"v"`
}

// Vector is a sparse feature vector with entries sorted by index.
type Vector []Entry

// NewVector builds a binary vector from a set of indices. Duplicate
// indices collapse into a single entry.
func NewVector(indices []int) Vector {
	if len(indices) == 0 {
		return Vector{}
	}
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Ints(sorted)

	v := make(Vector, 0, len(sorted))
	for i, idx := range sorted {
		if i > 0 && sorted[i-1] == idx {
			continue
		}
		v = append(v, Entry{Index: idx, Value: 1})
	}
	return v
}

// Dot returns the inner product of v with a dense weight vector. Entries
// outside of the weight vector are ignored.
func (v Vector) Dot(w []float64) float64 {
	sum := 0.0
	for _, e := range v {
		if e.Index >= 0 && e.Index < len(w) {
			sum += e.Value * w[e.Index]
		}
	}
	return sum
}

// Indices returns the indices of the non-zero entries.
func (v Vector) Indices() []int {
	out := make([]int, len(v))
	for i, e := range v {
		out[i] = e.Index
	}
	return out
}
