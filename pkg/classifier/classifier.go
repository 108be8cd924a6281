package classifier

import (
	"errors"

	"github.com/OFFIS-RIT/relex/pkg/features"
)

var (
	// ErrNoInstances is returned when Fit is called without training data.
	ErrNoInstances = errors.New("no training instances")
	// ErrSingleClass is returned when all training labels are identical.
	ErrSingleClass = errors.New("training labels contain a single class")
	// ErrShape is returned when the number of vectors and labels differ.
	ErrShape = errors.New("feature and label counts differ")
)

// Classifier is a binary classifier over sparse feature vectors. Labels are
// 0 and 1; PredictProba returns the probability of label 1.
type Classifier interface {
	Fit(X []features.Vector, y []int) error
	Predict(X []features.Vector) []int
	PredictProba(X []features.Vector) []float64
}

func checkTrainingSet(X []features.Vector, y []int) error {
	if len(X) != len(y) {
		return ErrShape
	}
	if len(X) == 0 {
		return ErrNoInstances
	}
	for _, l := range y[1:] {
		if l != y[0] {
			return nil
		}
	}
	return ErrSingleClass
}
