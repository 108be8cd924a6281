package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/relex/internal/queue"
	mid "github.com/OFFIS-RIT/relex/internal/server/middleware"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/store"
)

type fakeStore struct {
	runs        map[string]common.Run
	predictions map[string][]common.Prediction
	getRunCalls int
}

func (s *fakeStore) SaveRun(ctx context.Context, run common.Run) error { return nil }

func (s *fakeStore) GetRun(ctx context.Context, id string) (common.Run, error) {
	s.getRunCalls++
	run, ok := s.runs[id]
	if !ok {
		return common.Run{}, store.ErrRunNotFound
	}
	return run, nil
}

func (s *fakeStore) SaveEvaluation(ctx context.Context, runID string, report *eval.Report) error {
	return nil
}

func (s *fakeStore) SavePredictions(ctx context.Context, runID string, predictions []common.Prediction) error {
	return nil
}

func (s *fakeStore) GetPredictions(ctx context.Context, runID string) ([]common.Prediction, error) {
	return s.predictions[runID], nil
}

type fakeQueue struct {
	queue string
	body  []byte
	err   error
}

func (q *fakeQueue) Publish(queueName string, body []byte) error {
	q.queue, q.body = queueName, body
	return q.err
}

const masterKey = "secret"

func newTestApp() (*mid.App, *fakeQueue) {
	q := &fakeQueue{}
	return &mid.App{
		Store: &fakeStore{
			runs: map[string]common.Run{"run-1": {ID: "run-1", Kind: common.RunKindPredict}},
			predictions: map[string][]common.Prediction{"run-1": {
				{Index: 0, Label: 1, Probability: 0.9},
				{Index: 1, Label: 0, Probability: 0.2},
			}},
		},
		Queue:          q,
		MasterAPIKey:   masterKey,
		MasterUserID:   1,
		MasterUserRole: "admin",
	}, q
}

func do(t *testing.T, app *mid.App, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	New(app).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp()
	rec := do(t, app, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	app, _ := newTestApp()
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"Missing", "", http.StatusUnauthorized},
		{"WrongKeyWithoutJWKS", "nope", http.StatusUnauthorized},
		{"MasterKey", masterKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodGet, "/api/runs/run-1", tt.token, "")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestPostPrediction(t *testing.T) {
	app, q := newTestApp()
	body := `{"model_uri": "s3://models/hiv.model.gz", "corpus_uri": "s3://corpora/hiv", "entity_1": "human", "entity_2": "viral"}`

	rec := do(t, app, http.MethodPost, "/api/predictions", masterKey, body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.RunID == "" {
		t.Fatalf("expected run id, got %s (%v)", rec.Body.String(), err)
	}
	if q.queue != queue.PredictQueue {
		t.Fatalf("expected publish to %s, got %q", queue.PredictQueue, q.queue)
	}
	job, err := queue.ParsePredictJob(q.body)
	if err != nil {
		t.Fatalf("published job does not parse: %v", err)
	}
	if job.RunID != resp.RunID || job.Entity1 != "HUMAN" {
		t.Fatalf("unexpected published job %+v", job)
	}
}

func TestPostPredictionErrors(t *testing.T) {
	app, q := newTestApp()
	rec := do(t, app, http.MethodPost, "/api/predictions", masterKey, `{"corpus_uri": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid job, got %d", rec.Code)
	}

	q.err = errors.New("channel closed")
	body := `{"model_uri": "m", "corpus_uri": "c", "entity_1": "a", "entity_2": "b"}`
	rec = do(t, app, http.MethodPost, "/api/predictions", masterKey, body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on publish failure, got %d", rec.Code)
	}
}

func TestGetRun(t *testing.T) {
	app, _ := newTestApp()
	rec := do(t, app, http.MethodGet, "/api/runs/missing", masterKey, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(t, app, http.MethodGet, "/api/runs/run-1", masterKey, "")
	var run common.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil || run.Kind != common.RunKindPredict {
		t.Fatalf("unexpected run %s (%v)", rec.Body.String(), err)
	}
}

func TestGetRunPredictions(t *testing.T) {
	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 2},
		{"?label=1", http.StatusOK, 1},
		{"?label=0", http.StatusOK, 1},
		{"?label=yes", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app, _ := newTestApp()
			rec := do(t, app, http.MethodGet, "/api/runs/run-1/predictions"+tt.query, masterKey, "")
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if tt.code != http.StatusOK {
				return
			}
			var got []common.Prediction
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got) != tt.count {
				t.Fatalf("expected %d predictions, got %s (%v)", tt.count, rec.Body.String(), err)
			}
		})
	}
}

func TestGetRunPredictionsLabelChecks(t *testing.T) {
	app, _ := newTestApp()
	fs := app.Store.(*fakeStore)

	rec := do(t, app, http.MethodGet, "/api/runs/missing/predictions?label=2", masterKey, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before run lookup, got %d", rec.Code)
	}
	if fs.getRunCalls != 0 {
		t.Fatalf("expected no store lookups for invalid label, got %d", fs.getRunCalls)
	}

	rec = do(t, app, http.MethodGet, "/api/runs/run-1/predictions?label=0", masterKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stored := fs.predictions["run-1"]
	if len(stored) != 2 || stored[0].Label != 1 || stored[1].Label != 0 {
		t.Fatalf("expected stored predictions untouched, got %+v", stored)
	}
}
