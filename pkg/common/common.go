package common

import "time"

// RunKind tells which command produced a run.
type RunKind string

const (
	RunKindCrossValidation RunKind = "cv"
	RunKindDistantTrain    RunKind = "distant_train"
	RunKindPredict         RunKind = "predict"
)

// Run is one execution of a relex command against a corpus. It ties
// together the evaluation results or predictions it produced.
//
// A run records:
//   - the relation it targets (entity types and symmetry)
//   - where the model was read from or written to
//   - summary figures of its evaluation, when it has one
type Run struct {
	ID               string    `json:"id"`
	Kind             RunKind   `json:"kind"`
	Entity1          string    `json:"entity_1"`
	Entity2          string    `json:"entity_2"`
	Symmetric        bool      `json:"symmetric"`
	Corpus           string    `json:"corpus"`
	ModelURI         string    `json:"model_uri,omitempty"`
	Documents        int       `json:"documents"`
	Instances        int       `json:"instances"`
	Baseline         float64   `json:"baseline"`
	AveragePrecision float64   `json:"average_precision"`
	CreatedAt        time.Time `json:"created_at"`
}

// Mention is the surface of one endpoint of a predicted relation.
type Mention struct {
	Token int    `json:"token"`
	Text  string `json:"text"`
}

// Prediction is the classifier decision for one candidate pair. Index is
// the position of the instance in the run's output.
type Prediction struct {
	Index       int     `json:"index"`
	SentenceID  string  `json:"sentence_id"`
	Sentence    string  `json:"sentence"`
	Start       Mention `json:"start"`
	End         Mention `json:"end"`
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}
