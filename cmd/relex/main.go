package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/logger/console"

	"github.com/urfave/cli/v2"
)

var ErrNotImplemented = errors.New("testing function not developed yet")

const (
	relationUsage = "ENTITY1 E1FILE E1COL ENTITY2 E2FILE E2COL SYMMETRIC"
	kbUsage       = "KB KB_E1COL KB_E2COL KB_RELCOL"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Prefix: "relex",
		Format: util.GetEnvString("LOG_FORMAT", "text"),
	})
	logger.Init(consoleLogger)

	app := newApp()
	if err := app.RunContext(ctx, normalizeMode(os.Args, commandNames(app))); err != nil {
		logger.Fatal("relex failed", "err", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "relex",
		Usage: "distantly supervised binary relation extraction",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "folds",
				Usage: "number of cross-validation folds",
				Value: util.GetEnvInt("RELEX_FOLDS", 10),
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "folds evaluated concurrently",
				Value: util.GetEnvInt("RELEX_PARALLEL_FOLDS", 1),
			},
			&cli.StringFlag{
				Name:  "classifier-config",
				Usage: "YAML file with classifier parameters",
				Value: util.GetEnv("RELEX_CLASSIFIER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "prediction report path or s3:// URI",
				Value: util.GetEnvString("RELEX_PREDICT_OUT", "predicted_sentences.txt"),
			},
			&cli.StringFlag{
				Name:  "curve-out",
				Usage: "precision-recall curve TSV path or s3:// URI",
				Value: util.GetEnv("RELEX_CURVE_OUT"),
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "show a progress bar while reading corpus directories",
				Value: util.GetEnvBool("RELEX_PROGRESS", true),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "distant_train",
				Usage:     "cross-validate, then train and save a model on the whole corpus",
				ArgsUsage: "MODEL_OUT CORPUS " + kbUsage + " " + relationUsage,
				Action:    distantTrainAction,
			},
			{
				Name:      "cv",
				Usage:     "cross-validate only",
				ArgsUsage: "CORPUS " + kbUsage + " " + relationUsage,
				Action:    cvAction,
			},
			{
				Name:      "test",
				Usage:     "evaluate a saved model against a labeled corpus",
				ArgsUsage: "MODEL CORPUS " + relationUsage,
				Action:    testAction,
			},
			{
				Name:      "predict",
				Usage:     "classify every candidate pair of a corpus",
				ArgsUsage: "MODEL CORPUS " + relationUsage,
				Action:    predictAction,
			},
			{
				Name:      "convert",
				Usage:     "convert a CoreNLP directory into a JSON corpus",
				ArgsUsage: "CORPUS OUT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "entity1", Usage: "keep sentences mentioning this tag"},
					&cli.StringFlag{Name: "entity2", Usage: "keep sentences mentioning this tag"},
				},
				Action: convertAction,
			},
		},
	}
}

func commandNames(app *cli.App) []string {
	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	return names
}
