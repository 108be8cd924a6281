package eval

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/features"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/relation"
	"github.com/OFFIS-RIT/relex/pkg/sentence"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyFold is recorded for a fold whose held-out documents yield
	// no evaluable group.
	ErrEmptyFold = errors.New("fold has no evaluable groups")
	// ErrFoldSize is returned when there are fewer keys than folds.
	ErrFoldSize = errors.New("fewer documents than folds")
)

// Partition sorts keys and splits them into exactly k chunks of N/k keys.
// The trailing N mod k keys are not part of any chunk.
func Partition(keys []string, k int) ([][]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("invalid fold count %d", k)
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	size := len(sorted) / k
	if size == 0 {
		return nil, fmt.Errorf("%d documents, %d folds: %w", len(sorted), k, ErrFoldSize)
	}

	chunks := make([][]string, k)
	for i := range chunks {
		chunks[i] = sorted[i*size : (i+1)*size]
	}
	return chunks, nil
}

// Config drives CrossValidate.
type Config struct {
	Folds int
	// Parallel bounds the number of folds evaluated at the same time.
	Parallel int
	Relation relation.Config
	KB       *relation.KnowledgeBase
	// NewClassifier returns an untrained classifier for each fold.
	NewClassifier func() classifier.Classifier
}

// FoldResult is the outcome of one fold. A failed fold carries Err and no
// scores.
type FoldResult struct {
	Index          int      `json:"index"`
	TestKeys       []string `json:"test_keys"`
	TrainInstances int      `json:"train_instances"`
	TestInstances  int      `json:"test_instances"`
	Groups         int      `json:"groups"`
	Scores         []Score  `json:"scores"`
	Err            error    `json:"-"`
}

// Report aggregates all folds.
type Report struct {
	Scores           []Score      `json:"scores"`
	Curve            Curve        `json:"curve"`
	Baseline         float64      `json:"baseline"`
	AveragePrecision float64      `json:"average_precision"`
	Folds            []FoldResult `json:"folds"`
}

// FailedFolds returns the number of folds that did not contribute scores.
func (r *Report) FailedFolds() int {
	n := 0
	for _, f := range r.Folds {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// CrossValidate runs k-fold cross-validation over documents keyed by id.
// Each fold trains on the other chunks with its own dictionaries, then
// groups and scores the instances of every held-out document. Folds run in
// parallel; scores are concatenated in fold order.
func CrossValidate(ctx context.Context, corpus map[string][]*sentence.Sentence, cfg Config) (*Report, error) {
	chunks, err := Partition(slices.Collect(maps.Keys(corpus)), cfg.Folds)
	if err != nil {
		return nil, err
	}
	if cfg.NewClassifier == nil {
		cfg.NewClassifier = func() classifier.Classifier {
			return classifier.NewLogisticRegression(classifier.DefaultParams())
		}
	}

	logger.Info("[CV] Starting cross-validation", "folds", len(chunks), "documents", len(corpus), "fold_size", len(chunks[0]))

	results := make([]FoldResult, len(chunks))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.Parallel, 1))

	for i := range chunks {
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = runFold(i, chunks, corpus, cfg)
			if results[i].Err != nil {
				logger.Warn("[CV] Fold failed", "fold", i, "err", results[i].Err)
				return nil
			}
			logger.Info("[CV] Fold done", "fold", i, "train_instances", results[i].TrainInstances, "groups", len(results[i].Scores))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("cross-validation aborted: %w", err)
	}

	report := &Report{Folds: results}
	for _, r := range results {
		report.Scores = append(report.Scores, r.Scores...)
	}
	report.Curve = PrecisionRecallCurve(report.Scores)
	report.Baseline = Baseline(report.Scores)
	report.AveragePrecision = AveragePrecision(report.Curve)

	logger.Info("[CV] Cross-validation completed",
		"groups", len(report.Scores),
		"failed_folds", report.FailedFolds(),
		"baseline", report.Baseline,
		"average_precision", report.AveragePrecision,
	)

	return report, nil
}

func runFold(i int, chunks [][]string, corpus map[string][]*sentence.Sentence, cfg Config) FoldResult {
	res := FoldResult{Index: i, TestKeys: chunks[i]}

	var train []*sentence.Sentence
	for j, chunk := range chunks {
		if j == i {
			continue
		}
		for _, key := range chunk {
			train = append(train, corpus[key]...)
		}
	}

	instances, set := relation.BuildTrainingInstances(train, cfg.KB, cfg.Relation)
	res.TrainInstances = len(instances)

	clf := cfg.NewClassifier()
	if err := clf.Fit(vectors(instances), labels(instances)); err != nil {
		res.Err = fmt.Errorf("fold %d: failed to train classifier: %w", i, err)
		return res
	}

	for _, key := range chunks[i] {
		test := relation.BuildTestInstances(corpus[key], set, cfg.KB, cfg.Relation)
		res.TestInstances += len(test)

		grouping := relation.GroupInstances(test, cfg.Relation.Symmetric)
		res.Groups += grouping.Len()
		res.Scores = append(res.Scores, EvaluateGroups(grouping, clf)...)
	}

	if len(res.Scores) == 0 {
		res.Err = fmt.Errorf("fold %d: %w", i, ErrEmptyFold)
	}
	return res
}

func vectors(instances []*relation.Instance) []features.Vector {
	X := make([]features.Vector, len(instances))
	for i, inst := range instances {
		X[i] = inst.Features
	}
	return X
}

func labels(instances []*relation.Instance) []int {
	y := make([]int, len(instances))
	for i, inst := range instances {
		y[i] = inst.Label
	}
	return y
}
