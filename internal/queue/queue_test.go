package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/loader"
	"github.com/OFFIS-RIT/relex/pkg/model"
	"github.com/OFFIS-RIT/relex/pkg/pipeline"
	"github.com/OFFIS-RIT/relex/pkg/relation"
	"github.com/OFFIS-RIT/relex/pkg/sentence"

	"github.com/rabbitmq/amqp091-go"
)

func TestParsePredictJob(t *testing.T) {
	job, err := ParsePredictJob([]byte(`{
		"model_uri": "s3://models/hiv.model.gz",
		"corpus_uri": "abstracts/",
		"entity_1": "human",
		"entity_2": "viral",
		"entity_2_file": "viral_ids.tsv",
		"entity_2_col": 1
	}`))
	if err != nil {
		t.Fatalf("ParsePredictJob returned error: %v", err)
	}
	if job.Entity1 != "HUMAN" || job.Entity2 != "VIRAL" {
		t.Fatalf("expected upper-cased entities, got %s %s", job.Entity1, job.Entity2)
	}
	if job.Entity1File != loader.NoFile || job.Entity2File != "viral_ids.tsv" {
		t.Fatalf("unexpected entity files %q %q", job.Entity1File, job.Entity2File)
	}
	if !util.IsRunID(job.RunID) {
		t.Fatalf("expected generated run id, got %q", job.RunID)
	}
}

func TestParsePredictJobInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"NotJSON", `model`},
		{"MissingModel", `{"corpus_uri": "a", "entity_1": "A", "entity_2": "B"}`},
		{"MissingEntity", `{"model_uri": "m", "corpus_uri": "a", "entity_1": "A"}`},
		{"NegativeColumn", `{"model_uri": "m", "corpus_uri": "a", "entity_1": "A", "entity_2": "B", "entity_1_col": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePredictJob([]byte(tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type published struct {
	key string
	msg amqp091.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, msg: msg})
	return nil
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return nil
}

func TestHandleFailure(t *testing.T) {
	tests := []struct {
		name        string
		headers     amqp091.Table
		wantQueue   string
		wantRetries any
	}{
		{"FirstFailure", nil, PredictQueue + "_retry", int32(1)},
		{"Int64Header", amqp091.Table{"x-retries": int64(4)}, PredictQueue + "_retry", int32(5)},
		{"Exhausted", amqp091.Table{"x-retries": int32(MaxRetries)}, PredictQueue + "_dlq", int32(MaxRetries)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			ack := &fakeAck{}
			msg := amqp091.Delivery{Acknowledger: ack, Headers: tt.headers, Body: []byte(`{}`)}

			HandleFailure(pub, msg, PredictQueue)

			if len(pub.sent) != 1 || pub.sent[0].key != tt.wantQueue {
				t.Fatalf("expected publish to %s, got %+v", tt.wantQueue, pub.sent)
			}
			if got := pub.sent[0].msg.Headers["x-retries"]; got != tt.wantRetries {
				t.Fatalf("expected x-retries %v, got %v (%T)", tt.wantRetries, got, got)
			}
			if !ack.acked || ack.nacked {
				t.Fatalf("expected ack only, got %+v", ack)
			}
		})
	}
}

func TestHandleFailureRequeuesOnPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	ack := &fakeAck{}
	HandleFailure(pub, amqp091.Delivery{Acknowledger: ack}, PredictQueue)
	if ack.acked || !ack.nacked || !ack.requeued {
		t.Fatalf("expected nack with requeue, got %+v", ack)
	}
}

type memoryStore struct {
	runs        map[string]common.Run
	predictions map[string][]common.Prediction
}

func (m *memoryStore) SaveRun(ctx context.Context, run common.Run) error {
	m.runs[run.ID] = run
	return nil
}

func (m *memoryStore) GetRun(ctx context.Context, id string) (common.Run, error) {
	return m.runs[id], nil
}

func (m *memoryStore) SaveEvaluation(ctx context.Context, runID string, report *eval.Report) error {
	return nil
}

func (m *memoryStore) SavePredictions(ctx context.Context, runID string, predictions []common.Prediction) error {
	m.predictions[runID] = predictions
	return nil
}

func (m *memoryStore) GetPredictions(ctx context.Context, runID string) ([]common.Prediction, error) {
	return m.predictions[runID], nil
}

func sentenceFor(t *testing.T, key, human, viral, verb string) *sentence.Sentence {
	t.Helper()
	s := sentence.New(key + ":0")
	for _, tok := range []*sentence.Token{
		{ID: 1, Word: human, Lemma: human, NER: "HUMAN", NormalizedNER: human},
		{ID: 2, Word: verb, Lemma: verb, NER: "O"},
		{ID: 3, Word: viral, Lemma: viral, NER: "VIRAL", NormalizedNER: viral},
	} {
		if err := s.AddToken(tok); err != nil {
			t.Fatalf("AddToken returned error: %v", err)
		}
	}
	for _, d := range []sentence.Dependency{
		{Type: "root", Governor: s.Tokens[0], Dependent: s.Tokens[2]},
		{Type: "nsubj", Governor: s.Tokens[2], Dependent: s.Tokens[1]},
		{Type: "dobj", Governor: s.Tokens[2], Dependent: s.Tokens[3]},
	} {
		if err := s.AddDependency(d); err != nil {
			t.Fatalf("AddDependency returned error: %v", err)
		}
	}
	if err := s.BuildDependencyMatrix(); err != nil {
		t.Fatalf("BuildDependencyMatrix returned error: %v", err)
	}
	return s
}

// fixture writes a trained model and its corpus to dir.
func fixture(t *testing.T, dir string) (modelPath, corpusPath string) {
	t.Helper()
	corpus := make(loader.Corpus)
	kb := relation.NewKnowledgeBase()
	for i := range 10 {
		key := fmt.Sprintf("d%02d", i)
		human, viral := fmt.Sprintf("IL%d", i), fmt.Sprintf("Tat%d", i)
		verb := "mentions"
		if i%2 == 0 {
			verb = "activates"
			kb.Add(human, viral, "activates")
		}
		corpus[key] = []*sentence.Sentence{sentenceFor(t, key, human, viral, verb)}
	}

	bundle, err := pipeline.Train(corpus, kb, pipeline.Options{
		Relation: relation.Config{Entity1: "HUMAN", Entity2: "VIRAL"},
		Params:   classifier.DefaultParams(),
	})
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}

	modelPath = filepath.Join(dir, "hiv.model.gz")
	if err := model.Save(context.Background(), bundle, modelPath, nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	corpusPath = filepath.Join(dir, "corpus.json")
	f, err := os.Create(corpusPath)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer f.Close()
	if err := loader.WriteCorpus(f, corpus); err != nil {
		t.Fatalf("WriteCorpus returned error: %v", err)
	}
	return modelPath, corpusPath
}

func TestProcessPredictMessage(t *testing.T) {
	dir := t.TempDir()
	modelPath, corpusPath := fixture(t, dir)
	reportPath := filepath.Join(dir, "predicted_sentences.txt")

	body, _ := json.Marshal(PredictJob{
		RunID:     "run-42",
		ModelURI:  modelPath,
		CorpusURI: corpusPath,
		Entity1:   "human",
		Entity2:   "viral",
		ReportURI: reportPath,
	})

	st := &memoryStore{runs: map[string]common.Run{}, predictions: map[string][]common.Prediction{}}
	if err := ProcessPredictMessage(context.Background(), PredictDeps{Store: st}, string(body)); err != nil {
		t.Fatalf("ProcessPredictMessage returned error: %v", err)
	}

	run, ok := st.runs["run-42"]
	if !ok || run.Kind != common.RunKindPredict || run.Documents != 10 || run.Instances != 10 {
		t.Fatalf("unexpected stored run %+v", run)
	}
	predictions := st.predictions["run-42"]
	if len(predictions) != 10 {
		t.Fatalf("expected 10 predictions, got %d", len(predictions))
	}
	if predictions[0].Label != 1 || predictions[1].Label != 0 {
		t.Fatalf("expected labels 1,0, got %d,%d", predictions[0].Label, predictions[1].Label)
	}

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}
	if n := strings.Count(string(report), "Instance: "); n != 10 {
		t.Fatalf("expected 10 report blocks, got %d", n)
	}
	if !strings.Contains(string(report), "HUMAN: IL0\tVIRAL: Tat0\n") {
		t.Fatalf("expected mention line in report, got %q", report)
	}
}

func TestProcessPredictMessageMissingModel(t *testing.T) {
	body := `{"model_uri": "/nonexistent/model.gz", "corpus_uri": "x", "entity_1": "A", "entity_2": "B"}`
	if err := ProcessPredictMessage(context.Background(), PredictDeps{}, body); err == nil {
		t.Fatal("expected error for missing model")
	}
}
