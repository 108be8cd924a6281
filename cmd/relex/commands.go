package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/relex/internal/db"
	"github.com/OFFIS-RIT/relex/internal/storage"
	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
	"github.com/OFFIS-RIT/relex/pkg/loader"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/model"
	"github.com/OFFIS-RIT/relex/pkg/pipeline"
	"github.com/OFFIS-RIT/relex/pkg/relation"
	"github.com/OFFIS-RIT/relex/pkg/store"
	pgxstore "github.com/OFFIS-RIT/relex/pkg/store/pgx"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/urfave/cli/v2"
)

type settings struct {
	Folds            int
	Parallel         int
	ClassifierConfig string
	PredictOut       string
	CurveOut         string
	Progress         bool
}

// session holds the clients one command needs. S3 and the store are only
// opened when a URI or DATABASE_URL asks for them.
type session struct {
	settings settings
	s3       *s3.Client
	store    store.RunStorage
	closers  []func()
}

func openSession(c *cli.Context, uris ...string) (*session, error) {
	s := &session{settings: settings{
		Folds:            c.Int("folds"),
		Parallel:         c.Int("parallel"),
		ClassifierConfig: c.String("classifier-config"),
		PredictOut:       c.String("out"),
		CurveOut:         c.String("curve-out"),
		Progress:         c.Bool("progress"),
	}}

	for _, uri := range append(uris, s.settings.PredictOut, s.settings.CurveOut) {
		if _, ok := storage.ParseURI(uri); !ok {
			continue
		}
		client, err := storage.NewS3Client(c.Context)
		if err != nil {
			return nil, err
		}
		s.s3 = client
		break
	}

	if url := util.GetEnv("DATABASE_URL"); url != "" {
		pool, err := db.Connect(c.Context, url)
		if err != nil {
			return nil, err
		}
		s.store = pgxstore.NewRunDBStorageWithConnection(pool)
		s.closers = append(s.closers, pool.Close)
	}
	return s, nil
}

func (s *session) Close() {
	for _, fn := range s.closers {
		fn()
	}
}

func (s *session) loadCorpus(ctx context.Context, uri string, opts loader.Options) (loader.Corpus, error) {
	src, path, err := storage.OpenSource(uri, s.s3)
	if err != nil {
		return nil, err
	}
	if s.settings.Progress {
		opts.Progress = util.NewBarProgress()
	}
	corpus, err := loader.LoadAbstracts(ctx, src, path, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("[Loader] Corpus loaded", "documents", len(corpus), "sentences", len(corpus.Sentences()))
	return corpus, nil
}

func (s *session) relation(ctx context.Context, args relationArgs) (relation.Config, error) {
	cfg := args.config()
	var err error
	if cfg.Entity1IDs, err = s.idList(ctx, args.E1File, args.E1Col); err != nil {
		return relation.Config{}, err
	}
	if cfg.Entity2IDs, err = s.idList(ctx, args.E2File, args.E2Col); err != nil {
		return relation.Config{}, err
	}
	return cfg, nil
}

func (s *session) idList(ctx context.Context, uri string, col int) (map[string]struct{}, error) {
	src, path, err := storage.OpenSource(uri, s.s3)
	if err != nil {
		return nil, err
	}
	return loader.LoadIDList(ctx, src, path, col)
}

func (s *session) knowledgeBase(ctx context.Context, args kbArgs) (*relation.KnowledgeBase, error) {
	src, path, err := storage.OpenSource(args.Path, s.s3)
	if err != nil {
		return nil, err
	}
	kb, err := loader.LoadDistantKB(ctx, src, path, args.E1Col, args.E2Col, args.RelCol)
	if err != nil {
		return nil, err
	}
	logger.Info("[Loader] Knowledge base loaded", "relations", kb.Len())
	return kb, nil
}

func (s *session) saveRun(ctx context.Context, run common.Run, report *eval.Report, predictions []common.Prediction) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return err
	}
	if report != nil {
		if err := s.store.SaveEvaluation(ctx, run.ID, report); err != nil {
			return err
		}
	}
	if predictions != nil {
		if err := s.store.SavePredictions(ctx, run.ID, predictions); err != nil {
			return err
		}
	}
	logger.Info("[Store] Run saved", "run_id", run.ID, "kind", run.Kind)
	return nil
}

func usageError(c *cli.Context) error {
	return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
}

func cvAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) != 1+kbArgCount+relationArgCount {
		return usageError(c)
	}
	return evaluate(c, "", args)
}

func distantTrainAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) != 2+kbArgCount+relationArgCount {
		return usageError(c)
	}
	return evaluate(c, args[0], args[1:])
}

// evaluate cross-validates over CORPUS KB... RELATION... and, when modelOut
// is set, trains and saves the final model.
func evaluate(c *cli.Context, modelOut string, args []string) error {
	ctx := c.Context
	corpusURI := args[0]
	kbA, err := parseKBArgs(args[1 : 1+kbArgCount])
	if err != nil {
		return err
	}
	relA, err := parseRelationArgs(args[1+kbArgCount:])
	if err != nil {
		return err
	}

	sess, err := openSession(c, corpusURI, kbA.Path, relA.E1File, relA.E2File, modelOut)
	if err != nil {
		return err
	}
	defer sess.Close()

	params, err := classifier.LoadParams(sess.settings.ClassifierConfig)
	if err != nil {
		return err
	}
	rel, err := sess.relation(ctx, relA)
	if err != nil {
		return err
	}
	kb, err := sess.knowledgeBase(ctx, kbA)
	if err != nil {
		return err
	}
	corpus, err := sess.loadCorpus(ctx, corpusURI, loader.Options{Entity1: rel.Entity1, Entity2: rel.Entity2})
	if err != nil {
		return err
	}

	runID, err := util.NewRunID()
	if err != nil {
		return err
	}
	opts := pipeline.Options{
		Relation: rel,
		Params:   params,
		Folds:    sess.settings.Folds,
		Parallel: sess.settings.Parallel,
		RunID:    runID,
	}

	run := common.Run{
		ID:        runID,
		Kind:      common.RunKindCrossValidation,
		Entity1:   rel.Entity1,
		Entity2:   rel.Entity2,
		Symmetric: rel.Symmetric,
		Corpus:    corpusURI,
		Documents: len(corpus),
		CreatedAt: time.Now().UTC(),
	}

	var report *eval.Report
	if modelOut == "" {
		report, err = pipeline.CrossValidate(ctx, corpus, kb, opts)
		if err != nil {
			return err
		}
	} else {
		var bundle *model.Bundle
		report, bundle, err = pipeline.DistantTrain(ctx, corpus, kb, opts)
		if err != nil {
			return err
		}
		if err := model.Save(ctx, bundle, modelOut, sess.s3); err != nil {
			return err
		}
		logger.Info("[Train] Model saved", "path", modelOut)
		run.Kind = common.RunKindDistantTrain
		run.ModelURI = modelOut
		run.Instances = bundle.Meta.Instances
	}
	run.Baseline = report.Baseline
	run.AveragePrecision = report.AveragePrecision

	if sess.settings.CurveOut != "" {
		var buf bytes.Buffer
		if err := pipeline.WriteCurve(&buf, report.Curve); err != nil {
			return err
		}
		if err := storage.WriteObject(ctx, sess.s3, sess.settings.CurveOut, buf.Bytes(), "text/tab-separated-values"); err != nil {
			return err
		}
		logger.Info("[CV] Curve written", "path", sess.settings.CurveOut, "points", report.Curve.Len())
	}

	return sess.saveRun(ctx, run, report, nil)
}

func testAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) != 2+relationArgCount {
		return usageError(c)
	}
	if _, err := parseRelationArgs(args[2:]); err != nil {
		return err
	}
	return ErrNotImplemented
}

func predictAction(c *cli.Context) error {
	ctx := c.Context
	args := c.Args().Slice()
	if len(args) != 2+relationArgCount {
		return usageError(c)
	}
	modelURI, corpusURI := args[0], args[1]
	relA, err := parseRelationArgs(args[2:])
	if err != nil {
		return err
	}

	sess, err := openSession(c, modelURI, corpusURI, relA.E1File, relA.E2File)
	if err != nil {
		return err
	}
	defer sess.Close()

	bundle, err := model.Load(ctx, modelURI, sess.s3)
	if err != nil {
		return err
	}
	rel, err := sess.relation(ctx, relA)
	if err != nil {
		return err
	}
	corpus, err := sess.loadCorpus(ctx, corpusURI, loader.Options{Entity1: rel.Entity1, Entity2: rel.Entity2})
	if err != nil {
		return err
	}

	predictions, err := pipeline.Predict(bundle, corpus, rel)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pipeline.WriteReport(&buf, rel.Entity1, rel.Entity2, predictions); err != nil {
		return err
	}
	if err := storage.WriteObject(ctx, sess.s3, sess.settings.PredictOut, buf.Bytes(), "text/plain"); err != nil {
		return err
	}
	logger.Info("[Predict] Report written", "path", sess.settings.PredictOut, "predictions", len(predictions))

	runID, err := util.NewRunID()
	if err != nil {
		return err
	}
	return sess.saveRun(ctx, common.Run{
		ID:        runID,
		Kind:      common.RunKindPredict,
		Entity1:   rel.Entity1,
		Entity2:   rel.Entity2,
		Symmetric: rel.Symmetric,
		Corpus:    corpusURI,
		ModelURI:  modelURI,
		Documents: len(corpus),
		Instances: len(predictions),
		CreatedAt: time.Now().UTC(),
	}, nil, predictions)
}

func convertAction(c *cli.Context) error {
	ctx := c.Context
	if c.NArg() != 2 {
		return usageError(c)
	}
	corpusURI, out := c.Args().Get(0), c.Args().Get(1)

	sess, err := openSession(c, corpusURI, out)
	if err != nil {
		return err
	}
	defer sess.Close()

	corpus, err := sess.loadCorpus(ctx, corpusURI, loader.Options{
		Entity1: upper.String(c.String("entity1")),
		Entity2: upper.String(c.String("entity2")),
	})
	if err != nil {
		return err
	}

	body, err := encodeCorpus(corpus, strings.HasSuffix(out, ".gz"))
	if err != nil {
		return err
	}
	contentType := "application/json"
	if strings.HasSuffix(out, ".gz") {
		contentType = "application/gzip"
	}
	if err := storage.WriteObject(ctx, sess.s3, out, body, contentType); err != nil {
		return err
	}
	logger.Info("[Loader] Corpus written", "path", out, "documents", len(corpus))
	return nil
}

func encodeCorpus(corpus loader.Corpus, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if !compress {
		if err := loader.WriteCorpus(&buf, corpus); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	zw := gzip.NewWriter(&buf)
	if err := loader.WriteCorpus(zw, corpus); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
