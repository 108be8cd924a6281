package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// RunStorage persists runs together with their evaluation results and
// predictions. Saving the same run twice overwrites its summary row.
type RunStorage interface {
	SaveRun(ctx context.Context, run common.Run) error
	GetRun(ctx context.Context, id string) (common.Run, error)

	// SaveEvaluation stores the per-fold outcome and the precision-recall
	// curve of a cross-validation report.
	SaveEvaluation(ctx context.Context, runID string, report *eval.Report) error

	SavePredictions(ctx context.Context, runID string, predictions []common.Prediction) error
	GetPredictions(ctx context.Context, runID string) ([]common.Prediction, error)
}
