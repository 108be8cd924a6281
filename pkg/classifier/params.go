package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params are the hyper-parameters of LogisticRegression.
type Params struct {
	// C is the inverse L2 regularisation strength.
	C            float64 `yaml:"c" json:"c"`
	Iterations   int     `yaml:"iterations" json:"iterations"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	// Threshold is the probability above which Predict returns 1.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// DefaultParams returns the parameters used when no configuration is given.
func DefaultParams() Params {
	return Params{
		C:            1.0,
		Iterations:   500,
		LearningRate: 0.5,
		Threshold:    0.5,
	}
}

// ParseParams decodes YAML parameters. Missing fields keep their defaults.
func ParseParams(data []byte) (Params, error) {
	p := DefaultParams()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("failed to decode classifier params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// LoadParams reads YAML parameters from path. An empty path yields the
// defaults.
func LoadParams(path string) (Params, error) {
	if path == "" {
		return DefaultParams(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read classifier params %s: %w", path, err)
	}
	return ParseParams(data)
}

// Validate checks that all parameters are usable.
func (p Params) Validate() error {
	if p.C <= 0 {
		return fmt.Errorf("classifier param c must be positive, got %v", p.C)
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("classifier param iterations must be positive, got %d", p.Iterations)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("classifier param learning_rate must be positive, got %v", p.LearningRate)
	}
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return fmt.Errorf("classifier param threshold must be in (0, 1), got %v", p.Threshold)
	}
	return nil
}
