package classifier

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/relex/pkg/features"
)

func separable() ([]features.Vector, []int) {
	var X []features.Vector
	var y []int
	for range 5 {
		X = append(X, features.NewVector([]int{0, 2}))
		y = append(y, 1)
		X = append(X, features.NewVector([]int{1, 2}))
		y = append(y, 0)
	}
	return X, y
}

func TestLogisticRegressionFit(t *testing.T) {
	X, y := separable()
	m := NewLogisticRegression(DefaultParams())
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	probs := m.PredictProba([]features.Vector{
		features.NewVector([]int{0, 2}),
		features.NewVector([]int{1, 2}),
	})
	if probs[0] <= 0.5 || probs[1] >= 0.5 {
		t.Fatalf("expected separated probabilities, got %v", probs)
	}

	got := m.Predict(X[:2])
	if !reflect.DeepEqual(got, []int{1, 0}) {
		t.Fatalf("expected predictions [1 0], got %v", got)
	}
}

func TestLogisticRegressionDeterministic(t *testing.T) {
	X, y := separable()
	a := NewLogisticRegression(DefaultParams())
	b := NewLogisticRegression(DefaultParams())
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if !reflect.DeepEqual(a.Weights, b.Weights) || a.Bias != b.Bias {
		t.Fatal("expected identical models for identical input")
	}
}

func TestLogisticRegressionUnknownIndex(t *testing.T) {
	X, y := separable()
	m := NewLogisticRegression(DefaultParams())
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	got := m.PredictProba([]features.Vector{features.NewVector([]int{99})})[0]
	want := sigmoid(m.Bias)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v for unknown feature, got %v", want, got)
	}
}

func TestLogisticRegressionFitErrors(t *testing.T) {
	tests := []struct {
		name string
		X    []features.Vector
		y    []int
		err  error
	}{
		{"empty", nil, nil, ErrNoInstances},
		{"single class", []features.Vector{features.NewVector([]int{0}), features.NewVector([]int{1})}, []int{1, 1}, ErrSingleClass},
		{"shape mismatch", []features.Vector{features.NewVector([]int{0})}, []int{1, 0}, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLogisticRegression(DefaultParams()).Fit(tt.X, tt.y)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams([]byte("c: 0.25\niterations: 50\n"))
	if err != nil {
		t.Fatalf("ParseParams returned error: %v", err)
	}
	want := DefaultParams()
	want.C = 0.25
	want.Iterations = 50
	if p != want {
		t.Fatalf("expected %+v, got %+v", want, p)
	}

	if _, err := ParseParams([]byte("c: -1\n")); err == nil {
		t.Fatal("expected error for negative c")
	}
	if _, err := ParseParams([]byte("c: [\n")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadParamsDefaults(t *testing.T) {
	p, err := LoadParams("")
	if err != nil {
		t.Fatalf("LoadParams returned error: %v", err)
	}
	if p != DefaultParams() {
		t.Fatalf("expected defaults, got %+v", p)
	}
}
