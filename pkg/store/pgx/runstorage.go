package pgx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultInsertChunkSize = 1000

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// RunDBStorage implements store.RunStorage on PostgreSQL. Writes of one run
// are serialized and each Save* call runs in its own transaction.
type RunDBStorage struct {
	conn      pgxIConn
	chunkSize int
	dbLock    sync.Mutex
}

type RunDBStorageOption func(*RunDBStorage)

// WithChunkSize sets how many rows go into a single insert batch.
func WithChunkSize(n int) RunDBStorageOption {
	return func(s *RunDBStorage) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

var _ store.RunStorage = (*RunDBStorage)(nil)

// NewRunDBStorageWithConnection creates a RunDBStorage on top of an existing
// connection or pool.
func NewRunDBStorageWithConnection(conn pgxIConn, opts ...RunDBStorageOption) *RunDBStorage {
	s := &RunDBStorage{
		conn:      conn,
		chunkSize: defaultInsertChunkSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

const upsertRun = `
INSERT INTO runs (
	id, kind, entity_1, entity_2, symmetric, corpus, model_uri,
	documents, instances, baseline, average_precision, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	kind = EXCLUDED.kind,
	entity_1 = EXCLUDED.entity_1,
	entity_2 = EXCLUDED.entity_2,
	symmetric = EXCLUDED.symmetric,
	corpus = EXCLUDED.corpus,
	model_uri = EXCLUDED.model_uri,
	documents = EXCLUDED.documents,
	instances = EXCLUDED.instances,
	baseline = EXCLUDED.baseline,
	average_precision = EXCLUDED.average_precision`

// SaveRun inserts the run or overwrites its summary columns.
func (s *RunDBStorage) SaveRun(ctx context.Context, run common.Run) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err := s.conn.Exec(ctx, upsertRun,
		run.ID, string(run.Kind), run.Entity1, run.Entity2, run.Symmetric,
		run.Corpus, run.ModelURI, run.Documents, run.Instances,
		run.Baseline, run.AveragePrecision, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

const selectRun = `
SELECT id, kind, entity_1, entity_2, symmetric, corpus, model_uri,
	documents, instances, baseline, average_precision, created_at
FROM runs WHERE id = $1`

func (s *RunDBStorage) GetRun(ctx context.Context, id string) (common.Run, error) {
	var (
		run  common.Run
		kind string
	)
	err := s.conn.QueryRow(ctx, selectRun, id).Scan(
		&run.ID, &kind, &run.Entity1, &run.Entity2, &run.Symmetric,
		&run.Corpus, &run.ModelURI, &run.Documents, &run.Instances,
		&run.Baseline, &run.AveragePrecision, &run.CreatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Run{}, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	if err != nil {
		return common.Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.Kind = common.RunKind(kind)
	return run, nil
}

// SaveEvaluation replaces the folds and curve points stored for runID.
func (s *RunDBStorage) SaveEvaluation(ctx context.Context, runID string, report *eval.Report) error {
	if report == nil {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	return s.withTx(ctx, func(tx pgxv5.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM fold_results WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear folds: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM curve_points WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear curve: %w", err)
		}

		batch := &pgxv5.Batch{}
		for _, f := range report.Folds {
			var errText *string
			if f.Err != nil {
				msg := util.SanitizePostgresText(f.Err.Error())
				errText = &msg
			}
			batch.Queue(`
INSERT INTO fold_results (run_id, fold, test_keys, train_instances, test_instances, groups, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				runID, f.Index, f.TestKeys, f.TrainInstances, f.TestInstances, f.Groups, errText,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert folds: %w", err)
		}

		curve := report.Curve
		return store.ChunkRange(curve.Len(), s.chunkSize, func(start, end int) error {
			batch := &pgxv5.Batch{}
			for i := start; i < end; i++ {
				var threshold *float64
				if i < len(curve.Thresholds) {
					threshold = &curve.Thresholds[i]
				}
				batch.Queue(`
INSERT INTO curve_points (run_id, idx, precision, recall, threshold)
VALUES ($1, $2, $3, $4, $5)`,
					runID, i, curve.Precision[i], curve.Recall[i], threshold,
				)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to insert curve points: %w", err)
			}
			return nil
		})
	})
}

// SavePredictions replaces the predictions stored for runID.
func (s *RunDBStorage) SavePredictions(ctx context.Context, runID string, predictions []common.Prediction) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	return s.withTx(ctx, func(tx pgxv5.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM predictions WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear predictions: %w", err)
		}

		return store.ChunkRange(len(predictions), s.chunkSize, func(start, end int) error {
			rows := make([][]any, 0, end-start)
			for _, p := range predictions[start:end] {
				rows = append(rows, []any{
					runID, p.Index, p.SentenceID, util.SanitizePostgresText(p.Sentence),
					p.Start.Token, util.SanitizePostgresText(p.Start.Text),
					p.End.Token, util.SanitizePostgresText(p.End.Text),
					p.Label, p.Probability,
				})
			}
			_, err := tx.CopyFrom(ctx,
				pgxv5.Identifier{"predictions"},
				[]string{
					"run_id", "idx", "sentence_id", "sentence",
					"start_token", "start_text", "end_token", "end_text",
					"label", "probability",
				},
				pgxv5.CopyFromRows(rows),
			)
			if err != nil {
				return fmt.Errorf("failed to insert predictions %d-%d: %w", start, end, err)
			}
			return nil
		})
	})
}

const selectPredictions = `
SELECT idx, sentence_id, sentence, start_token, start_text, end_token, end_text, label, probability
FROM predictions WHERE run_id = $1 ORDER BY idx`

func (s *RunDBStorage) GetPredictions(ctx context.Context, runID string) ([]common.Prediction, error) {
	rows, err := s.conn.Query(ctx, selectPredictions, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}

	predictions, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Prediction, error) {
		var p common.Prediction
		err := row.Scan(
			&p.Index, &p.SentenceID, &p.Sentence,
			&p.Start.Token, &p.Start.Text, &p.End.Token, &p.End.Text,
			&p.Label, &p.Probability,
		)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}
	return predictions, nil
}

func (s *RunDBStorage) withTx(ctx context.Context, fn func(tx pgxv5.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
