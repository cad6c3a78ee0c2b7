package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"structsearch/internal/genetic"
	"structsearch/internal/incremental"
	"structsearch/internal/logging"
	"structsearch/internal/storage"
	"structsearch/pkg/structsearch"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "inputs":
		return runInputs(ctx, args[1:])
	case "order":
		return runOrder(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "defaults":
		return runDefaults(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// searchFlags registers the flags shared by inputs and order. Defaults come
// from opts; only visited flags override the config file.
func searchFlags(fs *flag.FlagSet, opts *runOptions) *string {
	configPath := fs.String("config", "", "path to a JSON or YAML options file")
	fs.String("store", opts.StoreKind, "store backend: memory|sqlite|badger")
	fs.String("db-path", opts.DBPath, "database path for sqlite or directory for badger")
	fs.String("settings", "", "path to an XML settings document")
	fs.String("save-results", "", "write settings and results to this XML path")
	fs.String("log-level", opts.LogLevel, "log level: debug|info|warn|error")

	fs.String("data", "", "CSV dataset path; a synthetic dataset is used when empty")
	fs.String("targets", "", "comma separated target columns")
	fs.Float64("validation", opts.Validation, "fraction of rows held out for validation")
	fs.Int("synthetic-inputs", opts.SyntheticInputs, "input count of the synthetic dataset")
	fs.Int("hidden", opts.Hidden, "hidden neurons used while selecting inputs")
	fs.Float64("ridge", opts.Ridge, "ridge penalty of the output solve")
	fs.String("activation", opts.Activation, "hidden activation name")
	fs.Int64("seed", opts.Seed, "random seed")
	fs.Bool("display", false, "log progress every iteration")

	fs.Int("trials", 1, "training trials per structure")
	fs.String("trials-method", "Minimum", "trial reduction: Maximum|Minimum|Mean")
	fs.Int("maximum-iterations", 0, "iteration limit")
	fs.Float64("maximum-time", 0, "time limit in seconds")
	fs.Float64("tolerance", 0, "minimum improvement counted as progress")
	fs.Float64("goal", 0, "generalization performance goal")
	fs.Int("maximum-failures", 0, "generalization failures before stopping")
	return configPath
}

func prepareOptions(fs *flag.FlagSet, opts *runOptions, configPath string) error {
	if configPath != "" {
		if err := opts.loadConfigFile(configPath); err != nil {
			return err
		}
	}
	return opts.overrideFromFlags(fs)
}

func newClient(opts *runOptions) (*structsearch.Client, *zap.Logger, error) {
	logger, err := logging.New(opts.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	client, err := structsearch.New(structsearch.Options{
		StoreKind: opts.StoreKind,
		DBPath:    opts.DBPath,
		Logger:    logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return client, logger, nil
}

func runInputs(ctx context.Context, args []string) error {
	opts := newRunOptions()
	fs := flag.NewFlagSet("inputs", flag.ContinueOnError)
	configPath := searchFlags(fs, opts)
	fs.Int("population-size", genetic.DefaultPopulationSize, "individuals per generation")
	fs.Int("elitism-size", 0, "individuals copied unchanged")
	fs.Float64("mutation-rate", 0, "per gene mutation probability")
	fs.String("crossover", "", "crossover: OnePoint|TwoPoint|Uniform or a registered name")
	fs.String("fitness-assignment", "", "fitness: ObjectiveBased|RankBased")
	fs.String("initialization", "", "initialization: Random|Weighted")
	fs.Int("workers", opts.Workers, "parallel evaluations per generation")
	fs.Bool("reuse-evaluations", false, "evaluate duplicate masks once per generation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := prepareOptions(fs, opts, *configPath); err != nil {
		return err
	}

	client, logger, err := newClient(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer client.Close()

	req := structsearch.InputsRequest{Data: opts.dataSpec()}
	// A name unknown to the settings enum may still be a registered operator.
	crossover := opts.Crossover
	if opts.isSet("crossover") {
		if _, err := genetic.ParseCrossoverMethod(crossover); err != nil {
			if !slices.Contains(genetic.ListCrossovers(), crossover) {
				return err
			}
			req.Crossover = crossover
			delete(opts.set, "crossover")
		}
	}
	settings, err := opts.geneticSettings(logger)
	if err != nil {
		return err
	}
	req.Settings = &settings

	summary, err := client.RunInputsSelection(ctx, req)
	if err != nil {
		return err
	}
	if opts.SaveResults != "" {
		if err := settings.Save(opts.SaveResults, summary.Results); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
	}
	fmt.Fprintf(stdout, "run_id=%s selected=%s\n", summary.RunID, strings.Join(summary.SelectedInputs, ","))
	fmt.Fprint(stdout, summary.Results.String())
	return nil
}

func runOrder(ctx context.Context, args []string) error {
	opts := newRunOptions()
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	configPath := searchFlags(fs, opts)
	fs.Int("minimum-order", incremental.DefaultMinimumOrder, "smallest hidden layer size")
	fs.Int("maximum-order", incremental.DefaultMaximumOrder, "largest hidden layer size")
	fs.Int("step", incremental.DefaultStep, "order increment")
	fs.String("inputs-run-id", "", "restrict inputs to the optimum of a stored inputs run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := prepareOptions(fs, opts, *configPath); err != nil {
		return err
	}

	client, logger, err := newClient(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer client.Close()

	settings, err := opts.incrementalSettings(logger)
	if err != nil {
		return err
	}
	summary, err := client.RunOrderSelection(ctx, structsearch.OrderRequest{
		Data:        opts.dataSpec(),
		Settings:    &settings,
		InputsRunID: opts.InputsRunID,
	})
	if err != nil {
		return err
	}
	if opts.SaveResults != "" {
		if err := settings.Save(opts.SaveResults, summary.Results); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
	}
	fmt.Fprintf(stdout, "run_id=%s\n", summary.RunID)
	fmt.Fprint(stdout, summary.Results.String())
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|badger")
	dbPath := fs.String("db-path", "structsearch.db", "database path for sqlite or directory for badger")
	limit := fs.Int("limit", 20, "max runs to show")
	jsonOut := fs.Bool("json", false, "emit JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := structsearch.New(structsearch.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	items, err := client.Runs(ctx, structsearch.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(stdout, "%s kind=%s created_at=%s dataset=%s seed=%d stop=%s iterations=%d final=%g\n",
			item.RunID,
			item.Kind,
			item.CreatedAtUTC,
			item.Dataset,
			item.Seed,
			item.StoppingCondition,
			item.IterationsNumber,
			item.FinalGeneralizationPerformance,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|badger")
	dbPath := fs.String("db-path", "structsearch.db", "database path for sqlite or directory for badger")
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit the stored record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires --run-id")
	}

	client, err := structsearch.New(structsearch.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	record, err := client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	fmt.Fprintf(stdout, "run_id=%s kind=%s created_at=%s dataset=%s seed=%d\n",
		record.ID, record.Kind, record.CreatedAtUTC, record.Dataset, record.Seed)
	switch {
	case record.Inputs != nil:
		fmt.Fprint(stdout, record.Inputs.String())
	case record.Order != nil:
		fmt.Fprint(stdout, record.Order.String())
	}
	return nil
}

func runDefaults(args []string) error {
	fs := flag.NewFlagSet("defaults", flag.ContinueOnError)
	algorithm := fs.String("algorithm", "genetic", "settings to print: genetic|incremental")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var data []byte
	var err error
	switch *algorithm {
	case "genetic":
		data, err = genetic.NewSettings().ToXML().Bytes()
	case "incremental":
		data, err = incremental.NewSettings().ToXML().Bytes()
	default:
		return fmt.Errorf("unsupported algorithm: %s", *algorithm)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: structsearchctl <inputs|order|runs|show|defaults> [flags]", msg)
}
