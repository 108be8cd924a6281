package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/relex/internal/storage"
	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/leaselock"
	"github.com/OFFIS-RIT/relex/pkg/loader"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/model"
	"github.com/OFFIS-RIT/relex/pkg/pipeline"
	"github.com/OFFIS-RIT/relex/pkg/relation"
	"github.com/OFFIS-RIT/relex/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-playground/validator"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var validate = validator.New()

// PredictJob asks the worker to classify a corpus with a trained model.
// URIs are local paths or s3:// locations; entity files may be "NONE".
type PredictJob struct {
	RunID       string `json:"run_id"`
	ModelURI    string `json:"model_uri" validate:"required"`
	CorpusURI   string `json:"corpus_uri" validate:"required"`
	Entity1     string `json:"entity_1" validate:"required"`
	Entity1File string `json:"entity_1_file"`
	Entity1Col  int    `json:"entity_1_col" validate:"min=0"`
	Entity2     string `json:"entity_2" validate:"required"`
	Entity2File string `json:"entity_2_file"`
	Entity2Col  int    `json:"entity_2_col" validate:"min=0"`
	Symmetric   bool   `json:"symmetric"`
	ReportURI   string `json:"report_uri"`
}

// ParsePredictJob decodes, validates and normalizes a job.
func ParsePredictJob(data []byte) (PredictJob, error) {
	var job PredictJob
	if err := json.Unmarshal(data, &job); err != nil {
		return PredictJob{}, fmt.Errorf("failed to decode predict job: %w", err)
	}
	if err := validate.Struct(job); err != nil {
		return PredictJob{}, fmt.Errorf("invalid predict job: %w", err)
	}
	return job.Normalize()
}

// Normalize upper-cases the entity names, defaults missing entity files to
// NONE and generates a run id when none is set.
func (job PredictJob) Normalize() (PredictJob, error) {
	upper := cases.Upper(language.Und)
	job.Entity1 = upper.String(job.Entity1)
	job.Entity2 = upper.String(job.Entity2)
	if job.Entity1File == "" {
		job.Entity1File = loader.NoFile
	}
	if job.Entity2File == "" {
		job.Entity2File = loader.NoFile
	}

	if job.RunID == "" {
		id, err := util.NewRunID()
		if err != nil {
			return PredictJob{}, err
		}
		job.RunID = id
	}
	return job, nil
}

// PredictDeps are the collaborators of a predict job. Store and Locker may
// be nil.
type PredictDeps struct {
	S3     *s3.Client
	Store  store.RunStorage
	Locker *leaselock.Locker
}

func ProcessPredictMessage(ctx context.Context, deps PredictDeps, msg string) error {
	job, err := ParsePredictJob([]byte(msg))
	if err != nil {
		return err
	}

	logger.Info("[Queue] Predict job received", "run_id", job.RunID, "model", job.ModelURI, "corpus", job.CorpusURI)

	if deps.Locker == nil {
		return runPredict(ctx, deps, job)
	}
	return deps.Locker.Run(ctx, "predict:"+job.RunID, leaselock.Options{TTL: 5 * time.Minute},
		func(ctx context.Context) error {
			return runPredict(ctx, deps, job)
		},
	)
}

func runPredict(ctx context.Context, deps PredictDeps, job PredictJob) error {
	bundle, err := model.Load(ctx, job.ModelURI, deps.S3)
	if err != nil {
		return err
	}

	rel := relation.Config{
		Entity1:   job.Entity1,
		Entity2:   job.Entity2,
		Symmetric: job.Symmetric,
	}
	if rel.Entity1IDs, err = loadIDs(ctx, deps.S3, job.Entity1File, job.Entity1Col); err != nil {
		return err
	}
	if rel.Entity2IDs, err = loadIDs(ctx, deps.S3, job.Entity2File, job.Entity2Col); err != nil {
		return err
	}

	src, path, err := storage.OpenSource(job.CorpusURI, deps.S3)
	if err != nil {
		return err
	}
	corpus, err := loader.LoadAbstracts(ctx, src, path, loader.Options{Entity1: rel.Entity1, Entity2: rel.Entity2})
	if err != nil {
		return err
	}

	predictions, err := pipeline.Predict(bundle, corpus, rel)
	if err != nil {
		return err
	}

	if job.ReportURI != "" {
		var buf bytes.Buffer
		if err := pipeline.WriteReport(&buf, rel.Entity1, rel.Entity2, predictions); err != nil {
			return err
		}
		if err := storage.WriteObject(ctx, deps.S3, job.ReportURI, buf.Bytes(), "text/plain"); err != nil {
			return err
		}
	}

	if deps.Store != nil {
		run := common.Run{
			ID:        job.RunID,
			Kind:      common.RunKindPredict,
			Entity1:   rel.Entity1,
			Entity2:   rel.Entity2,
			Symmetric: rel.Symmetric,
			Corpus:    job.CorpusURI,
			ModelURI:  job.ModelURI,
			Documents: len(corpus),
			Instances: len(predictions),
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveRun(ctx, run); err != nil {
			return err
		}
		if err := deps.Store.SavePredictions(ctx, job.RunID, predictions); err != nil {
			return err
		}
	}

	logger.Info("[Queue] Predict job done", "run_id", job.RunID, "predictions", len(predictions))
	return nil
}

func loadIDs(ctx context.Context, client *s3.Client, uri string, col int) (map[string]struct{}, error) {
	src, path, err := storage.OpenSource(uri, client)
	if err != nil {
		return nil, err
	}
	return loader.LoadIDList(ctx, src, path, col)
}
