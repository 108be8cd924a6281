package classifier

import (
	"math"

	"github.com/OFFIS-RIT/relex/pkg/features"
)

// LogisticRegression is an L2-regularised binary logistic regression
// trained with full-batch gradient descent. Training is deterministic: the
// same data and parameters always yield the same weights.
type LogisticRegression struct {
	Params  Params    `json:"params"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// NewLogisticRegression returns an untrained model.
func NewLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{Params: p}
}

// Fit minimises the mean log loss plus ||w||²/(2·C·n). The bias is not
// regularised.
func (m *LogisticRegression) Fit(X []features.Vector, y []int) error {
	if err := checkTrainingSet(X, y); err != nil {
		return err
	}
	if err := m.Params.Validate(); err != nil {
		return err
	}

	dim := 0
	for _, x := range X {
		if len(x) > 0 {
			dim = max(dim, x[len(x)-1].Index+1)
		}
	}

	n := float64(len(X))
	w := make([]float64, dim)
	grad := make([]float64, dim)
	bias := 0.0
	lambda := 1 / (m.Params.C * n)

	for range m.Params.Iterations {
		for j := range grad {
			grad[j] = lambda * w[j]
		}
		gradBias := 0.0

		for i, x := range X {
			diff := (sigmoid(x.Dot(w)+bias) - float64(y[i])) / n
			for _, e := range x {
				grad[e.Index] += diff * e.Value
			}
			gradBias += diff
		}

		for j := range w {
			w[j] -= m.Params.LearningRate * grad[j]
		}
		bias -= m.Params.LearningRate * gradBias
	}

	m.Weights = w
	m.Bias = bias
	return nil
}

// PredictProba returns P(label=1) for every vector. Indices unknown to the
// model contribute nothing.
func (m *LogisticRegression) PredictProba(X []features.Vector) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(x.Dot(m.Weights) + m.Bias)
	}
	return out
}

// Predict returns 1 for every vector whose probability exceeds the
// threshold, 0 otherwise.
func (m *LogisticRegression) Predict(X []features.Vector) []int {
	threshold := m.Params.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	probs := m.PredictProba(X)
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > threshold {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
