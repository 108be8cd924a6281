package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/loader"
	"github.com/OFFIS-RIT/relex/pkg/relation"
	"github.com/OFFIS-RIT/relex/pkg/sentence"
)

func document(t *testing.T, key, human, viral, verb string) []*sentence.Sentence {
	t.Helper()
	s := sentence.New(key + ":0")
	toks := []*sentence.Token{
		{ID: 1, Word: "G" + human, Lemma: "g" + human, NER: "HUMAN", NormalizedNER: human},
		{ID: 2, Word: verb, Lemma: verb, NER: "O"},
		{ID: 3, Word: "V" + viral, Lemma: "v" + viral, NER: "VIRAL", NormalizedNER: viral},
	}
	for _, tok := range toks {
		if err := s.AddToken(tok); err != nil {
			t.Fatalf("AddToken returned error: %v", err)
		}
	}
	deps := []sentence.Dependency{
		{Type: "root", Governor: s.Tokens[0], Dependent: s.Tokens[2]},
		{Type: "nsubj", Governor: s.Tokens[2], Dependent: s.Tokens[1]},
		{Type: "dobj", Governor: s.Tokens[2], Dependent: s.Tokens[3]},
	}
	for _, d := range deps {
		if err := s.AddDependency(d); err != nil {
			t.Fatalf("AddDependency returned error: %v", err)
		}
	}
	if err := s.BuildDependencyMatrix(); err != nil {
		t.Fatalf("BuildDependencyMatrix returned error: %v", err)
	}
	return []*sentence.Sentence{s}
}

// corpus returns 20 single-sentence documents; even ones express the
// relation and are in the knowledge base.
func corpus(t *testing.T) (loader.Corpus, *relation.KnowledgeBase) {
	c := make(loader.Corpus)
	kb := relation.NewKnowledgeBase()
	for i := range 20 {
		key := fmt.Sprintf("d%02d", i)
		human, viral := fmt.Sprintf("h%d", i), fmt.Sprintf("v%d", i)
		verb := "mentions"
		if i%2 == 0 {
			verb = "activates"
			kb.Add(human, viral, "activates")
		}
		c[key] = document(t, key, human, viral, verb)
	}
	return c, kb
}

func options() Options {
	return Options{
		Relation: relation.Config{Entity1: "HUMAN", Entity2: "VIRAL"},
		Params:   classifier.DefaultParams(),
		Folds:    4,
		Parallel: 2,
		RunID:    "run-1",
	}
}

func TestTrainAndPredict(t *testing.T) {
	c, kb := corpus(t)
	opts := options()

	bundle, err := Train(c, kb, opts)
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	if bundle.Meta.Instances != 20 || bundle.Meta.Positives != 10 {
		t.Fatalf("expected 20 instances with 10 positives, got %+v", bundle.Meta)
	}
	if bundle.Meta.RunID != "run-1" || bundle.Meta.Entity1 != "HUMAN" {
		t.Fatalf("unexpected meta %+v", bundle.Meta)
	}

	predictions, err := Predict(bundle, c, opts.Relation)
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if len(predictions) != 20 {
		t.Fatalf("expected 20 predictions, got %d", len(predictions))
	}
	for i, p := range predictions {
		if p.Index != i {
			t.Fatalf("expected index %d, got %d", i, p.Index)
		}
		want := 0
		if i%2 == 0 {
			want = 1
		}
		if p.Label != want {
			t.Fatalf("prediction %d: expected label %d, got %d (p=%f)", i, want, p.Label, p.Probability)
		}
	}

	first := predictions[0]
	if first.SentenceID != "d00:0" || first.Sentence != "Gh0 activates Vv0" {
		t.Fatalf("unexpected sentence %q %q", first.SentenceID, first.Sentence)
	}
	if first.Start != (common.Mention{Token: 1, Text: "Gh0"}) || first.End != (common.Mention{Token: 3, Text: "Vv0"}) {
		t.Fatalf("unexpected mentions %+v %+v", first.Start, first.End)
	}
}

func TestPredictRejectsOtherRelation(t *testing.T) {
	c, kb := corpus(t)
	bundle, err := Train(c, kb, options())
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	_, err = Predict(bundle, c, relation.Config{Entity1: "VIRAL", Entity2: "HUMAN"})
	if !errors.Is(err, ErrRelationMismatch) {
		t.Fatalf("expected ErrRelationMismatch, got %v", err)
	}
}

func TestTrainWithoutKnowledgeBase(t *testing.T) {
	c, _ := corpus(t)
	_, err := Train(c, relation.NewKnowledgeBase(), options())
	if !errors.Is(err, classifier.ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}

func TestDistantTrain(t *testing.T) {
	c, kb := corpus(t)
	report, bundle, err := DistantTrain(context.Background(), c, kb, options())
	if err != nil {
		t.Fatalf("DistantTrain returned error: %v", err)
	}
	if len(report.Folds) != 4 || len(report.Scores) != 20 {
		t.Fatalf("expected 4 folds and 20 scores, got %d and %d", len(report.Folds), len(report.Scores))
	}
	if bundle == nil || bundle.Meta.Instances != 20 {
		t.Fatalf("expected bundle trained on 20 instances, got %+v", bundle)
	}
}

func TestWriteReport(t *testing.T) {
	predictions := []common.Prediction{{
		Index:       0,
		SentenceID:  "d00:0",
		Sentence:    "IL6 activates the Tat",
		Start:       common.Mention{Token: 1, Text: "IL6"},
		End:         common.Mention{Token: 4, Text: "Tat"},
		Label:       1,
		Probability: 0.875,
	}}

	var buf bytes.Buffer
	if err := WriteReport(&buf, "HUMAN", "VIRAL", predictions); err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}
	want := "Instance: 0\n" +
		"Label: 1\n" +
		"HUMAN: IL6\tVIRAL: Tat\n" +
		"HUMAN_index: 1\tVIRAL_index: 4\n" +
		"IL6 activates the Tat\n" +
		"Probability: 0.8750\n\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteCurve(t *testing.T) {
	c := eval.Curve{
		Precision:  []float64{0.5, 1},
		Recall:     []float64{1, 0},
		Thresholds: []float64{0.25},
	}
	var buf bytes.Buffer
	if err := WriteCurve(&buf, c); err != nil {
		t.Fatalf("WriteCurve returned error: %v", err)
	}
	want := "threshold\tprecision\trecall\n" +
		"0.250000\t0.500000\t1.000000\n" +
		"-\t1.000000\t0.000000\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}
