package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cognicore/relief/internal/logging"
	"github.com/cognicore/relief/pkg/relief"
	"github.com/cognicore/relief/pkg/relief/config"
	"github.com/cognicore/relief/pkg/relief/resources"
	"github.com/cognicore/relief/pkg/relief/selection"
	"github.com/cognicore/relief/pkg/relief/store/sqlite"
)

const usage = "Please provide the filepath of the disaster messages database " +
	"as the first argument and the filepath of the model file to " +
	"save the model to as the second argument. \n\nExample: train-classifier " +
	"../data/DisasterResponse.db classifier.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// settings are the parsed command line.
type settings struct {
	cfg       config.Training
	search    bool
	seed      uint64
	cacheDir  string
	dbPath    string
	modelPath string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("train-classifier", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var search selection.Choice
	fs.Var(&search, "search", "Run a cross-validated grid search (-search=yes|no; a bare -search means yes)")
	var (
		workers    = fs.Int("workers", 0, "Parallel fits (default from config, 4)")
		seed       = fs.Uint64("seed", 0, "Train/test split seed (default: time based)")
		testSize   = fs.Float64("test-size", 0, "Held-out fraction (default from config, 0.2)")
		table      = fs.String("table", "", "Table holding the messages (default DisasterResponse)")
		configPath = fs.String("config", "", "Training config YAML (optional)")
		gridPath   = fs.String("grid", "", "Grid-search values YAML (optional)")
		cacheDir   = fs.String("cache-dir", "", "Directory for stopword and lemma files (default user cache dir)")
		logLevel   = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		logJSON    = fs.Bool("log-json", false, "Write logs as JSON")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logging.Init(*logJSON, level)

	if fs.NArg() != 2 {
		if fs.NArg() > 0 {
			// "-search yes db model" leaves "yes" as a positional argument.
			fmt.Fprintf(stderr, "expected 2 arguments, got %d: %q\n", fs.NArg(), fs.Args())
		}
		fmt.Fprintln(stdout, usage)
		return 0
	}

	cfg := config.DefaultTraining()
	if *configPath != "" {
		if cfg, err = config.LoadTraining(*configPath); err != nil {
			slog.Error("load config", "err", err)
			return 1
		}
	}
	if *gridPath != "" {
		if cfg.Grid, err = config.LoadGrid(*gridPath); err != nil {
			slog.Error("load grid", "err", err)
			return 1
		}
	}

	s := settings{
		cfg:       cfg,
		search:    bool(search),
		cacheDir:  *cacheDir,
		dbPath:    fs.Arg(0),
		modelPath: fs.Arg(1),
	}
	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			s.cfg.Workers = *workers
		case "test-size":
			s.cfg.TestSize = *testSize
		case "table":
			s.cfg.Table = *table
		case "seed":
			s.seed = *seed
			seedSet = true
		}
	})
	if !seedSet {
		s.seed = uint64(time.Now().UnixNano())
	}
	if err := s.cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		return 1
	}
	slog.Info("starting training", "seed", s.seed, "search", s.search, "workers", s.cfg.Workers, "table", s.cfg.Table)

	trainer, err := buildTrainer(ctx, s, stdout)
	if err != nil {
		slog.Error("setup failed", "err", err)
		return 1
	}
	defer trainer.Close()

	res, err := trainer.Run(ctx)
	if err != nil {
		slog.Error("training failed", "stage", res.Stage.String(), "err", err)
		return 1
	}
	slog.Info("training finished", "run_id", res.Model.Meta.RunID, "model", s.modelPath)
	return 0
}

// buildTrainer materializes the tokenizer resources, builds the tokenizer
// and opens the database.
func buildTrainer(ctx context.Context, s settings, out io.Writer) (*relief.Trainer, error) {
	loader, err := s.cfg.Loader()
	if err != nil {
		return nil, err
	}
	if loader.StoplistPath == "" || loader.LexiconPath == "" {
		paths, err := resources.Ensure(s.cacheDir)
		if err != nil {
			slog.Warn("using embedded tokenizer resources", "err", err)
		} else {
			if loader.StoplistPath == "" {
				loader.StoplistPath = paths.Stopwords
			}
			if loader.LexiconPath == "" {
				loader.LexiconPath = paths.Lemmas
			}
		}
	}

	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}
	slog.Debug("tokenizer ready",
		"stopwords", comp.Stoplist.Len(),
		"lemmas", comp.Lexicon.Stats().Lemmas,
		"policy", comp.Tokenizer.Policy().String())

	st, err := sqlite.Open(ctx, s.dbPath)
	if err != nil {
		return nil, err
	}

	return relief.New(relief.Options{
		Store:        st,
		Table:        s.cfg.Table,
		Tokenizer:    comp.Tokenizer,
		Params:       s.cfg.Params(),
		Search:       s.search,
		Grid:         s.cfg.Grid,
		Folds:        s.cfg.CVFolds,
		Workers:      s.cfg.Workers,
		TestSize:     s.cfg.TestSize,
		Seed:         s.seed,
		DatabasePath: s.dbPath,
		ModelPath:    s.modelPath,
		Out:          out,
	}), nil
}
