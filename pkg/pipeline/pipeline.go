package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/features"
	"github.com/OFFIS-RIT/relex/pkg/loader"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/model"
	"github.com/OFFIS-RIT/relex/pkg/relation"
)

var ErrRelationMismatch = errors.New("model was trained for a different relation")

// Options configures training and cross-validation.
type Options struct {
	Relation relation.Config
	Params   classifier.Params
	Folds    int
	Parallel int
	RunID    string
}

func (o Options) newClassifier() classifier.Classifier {
	return classifier.NewLogisticRegression(o.Params)
}

// CrossValidate evaluates the relation over the corpus with k-fold
// cross-validation.
func CrossValidate(ctx context.Context, corpus loader.Corpus, kb *relation.KnowledgeBase, opts Options) (*eval.Report, error) {
	return eval.CrossValidate(ctx, corpus, eval.Config{
		Folds:         opts.Folds,
		Parallel:      opts.Parallel,
		Relation:      opts.Relation,
		KB:            kb,
		NewClassifier: opts.newClassifier,
	})
}

// Train fits a classifier on every sentence of the corpus and bundles it
// with the dictionaries learned from the same instances.
func Train(corpus loader.Corpus, kb *relation.KnowledgeBase, opts Options) (*model.Bundle, error) {
	instances, set := relation.BuildTrainingInstances(corpus.Sentences(), kb, opts.Relation)

	vectors, labels, positives := split(instances)

	clf := classifier.NewLogisticRegression(opts.Params)
	if err := clf.Fit(vectors, labels); err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}

	logger.Info("[Train] Classifier trained",
		"instances", len(instances),
		"positives", positives,
		"dep_paths", set.DepPath.Len(),
		"dep_words", set.DepWord.Len(),
		"dep_elements", set.DepElement.Len(),
		"between_words", set.BetweenWord.Len(),
		"dim", set.Dim(),
	)

	return model.New(clf, set, model.Meta{
		RunID:     opts.RunID,
		Entity1:   opts.Relation.Entity1,
		Entity2:   opts.Relation.Entity2,
		Symmetric: opts.Relation.Symmetric,
		Instances: len(instances),
		Positives: positives,
		TrainedAt: time.Now().UTC(),
	}), nil
}

// DistantTrain cross-validates, then trains the final model on the whole
// corpus.
func DistantTrain(ctx context.Context, corpus loader.Corpus, kb *relation.KnowledgeBase, opts Options) (*eval.Report, *model.Bundle, error) {
	report, err := CrossValidate(ctx, corpus, kb, opts)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := Train(corpus, kb, opts)
	if err != nil {
		return report, nil, err
	}
	return report, bundle, nil
}

// Predict classifies every candidate pair of the corpus with the bundled
// model. Predictions are numbered in corpus order.
func Predict(b *model.Bundle, corpus loader.Corpus, rel relation.Config) ([]common.Prediction, error) {
	if b.Meta.Entity1 != "" && (b.Meta.Entity1 != rel.Entity1 || b.Meta.Entity2 != rel.Entity2) {
		return nil, fmt.Errorf("%w: model %s/%s, requested %s/%s",
			ErrRelationMismatch, b.Meta.Entity1, b.Meta.Entity2, rel.Entity1, rel.Entity2)
	}

	instances := relation.BuildPredictInstances(corpus.Sentences(), b.Features, rel)
	vectors, _, _ := split(instances)
	probs := b.Classifier.PredictProba(vectors)
	labels := b.Classifier.Predict(vectors)

	predictions := make([]common.Prediction, len(instances))
	for i, inst := range instances {
		s := inst.Sentence
		predictions[i] = common.Prediction{
			Index:       i,
			SentenceID:  s.ID,
			Sentence:    s.String(),
			Start:       mention(inst, rel.Entity1, inst.Start),
			End:         mention(inst, rel.Entity2, inst.End),
			Label:       labels[i],
			Probability: probs[i],
		}
	}

	logger.Info("[Predict] Instances classified",
		"sentences", len(corpus.Sentences()),
		"instances", len(instances),
	)
	return predictions, nil
}

func mention(inst *relation.Instance, tag string, id int) common.Mention {
	span, ok := inst.Sentence.SpanOf(tag, id)
	if !ok {
		span = []int{id}
	}
	return common.Mention{Token: id, Text: joinWords(inst.Sentence.Words(span))}
}

func split(instances []*relation.Instance) (vectors []features.Vector, labels []int, positives int) {
	vectors = make([]features.Vector, len(instances))
	labels = make([]int, len(instances))
	for i, inst := range instances {
		vectors[i] = inst.Features
		labels[i] = inst.Label
		if inst.Label == relation.Positive {
			positives++
		}
	}
	return vectors, labels, positives
}
