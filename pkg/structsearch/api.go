// Package structsearch runs input and hidden-order selection against the
// built-in extreme learning machine evaluator and keeps every finished run in
// a results store.
package structsearch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"structsearch/internal/evaluator"
	"structsearch/internal/genetic"
	"structsearch/internal/incremental"
	"structsearch/internal/model"
	"structsearch/internal/storage"
)

const (
	defaultDBPath    = "structsearch.db"
	defaultRunsLimit = 20

	// Fixed width so stored timestamps sort lexically.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time

	initMu      sync.Mutex
	initialized bool
}

// DataSpec selects the dataset and the evaluator built on it. A CSV path
// takes precedence over Synthetic.
type DataSpec struct {
	Path               string
	Targets            []string
	ValidationFraction float64
	Synthetic          *evaluator.SyntheticOptions

	Hidden     int
	Ridge      float64
	Activation string
	Seed       int64
}

type InputsRequest struct {
	Data DataSpec
	// Settings defaults to genetic.NewSettings() when nil.
	Settings *genetic.Settings
	// Crossover names a registered crossover overriding the settings method.
	Crossover string
}

type OrderRequest struct {
	Data DataSpec
	// Settings defaults to incremental.NewSettings() when nil.
	Settings *incremental.Settings
	// InputsRunID restricts the network to the optimal inputs of a stored
	// inputs run. Inputs is used when no run id is given.
	InputsRunID string
	Inputs      []bool
}

type InputsSummary struct {
	RunID          string
	SelectedInputs []string
	Results        *model.InputsSelectionResults
}

type OrderSummary struct {
	RunID   string
	Results *model.OrderSelectionResults
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID                          string
	Kind                           string
	CreatedAtUTC                   string
	Dataset                        string
	Seed                           int64
	StoppingCondition              model.StoppingCondition
	FinalGeneralizationPerformance float64
	IterationsNumber               int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == storage.KindSQLite {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) RunInputsSelection(ctx context.Context, req InputsRequest) (InputsSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return InputsSummary{}, err
	}
	data, elm, err := req.Data.build()
	if err != nil {
		return InputsSummary{}, err
	}
	settings := genetic.NewSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	opts := []genetic.Option{genetic.WithLogger(c.logger)}
	if req.Crossover != "" {
		opts = append(opts, genetic.WithCrossover(req.Crossover))
	}
	engine, err := genetic.NewEngine(settings, elm, elm.InputsNumber(), opts...)
	if err != nil {
		return InputsSummary{}, err
	}
	results, err := engine.PerformInputsSelection(ctx)
	if err != nil {
		return InputsSummary{}, err
	}

	record := c.newRecord(model.RunKindInputs, settings.Seed(), data.Name())
	record.Inputs = results
	if err := c.store.SaveRun(ctx, record); err != nil {
		return InputsSummary{}, fmt.Errorf("save run: %w", err)
	}

	names := elm.InputNames()
	var selected []string
	for i, bit := range results.OptimalInputs {
		if bit {
			selected = append(selected, names[i])
		}
	}
	return InputsSummary{RunID: record.ID, SelectedInputs: selected, Results: results}, nil
}

func (c *Client) RunOrderSelection(ctx context.Context, req OrderRequest) (OrderSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return OrderSummary{}, err
	}
	data, elm, err := req.Data.build()
	if err != nil {
		return OrderSummary{}, err
	}

	inputs := req.Inputs
	if req.InputsRunID != "" {
		run, err := c.Run(ctx, req.InputsRunID)
		if err != nil {
			return OrderSummary{}, err
		}
		if run.Inputs == nil {
			return OrderSummary{}, fmt.Errorf("run %s is not an inputs selection run", req.InputsRunID)
		}
		inputs = run.Inputs.OptimalInputs
	}
	if inputs != nil {
		params, err := elm.InputsParameters(ctx, inputs)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("restrict inputs: %w", err)
		}
		if err := elm.InstallInputs(ctx, inputs, params); err != nil {
			return OrderSummary{}, fmt.Errorf("restrict inputs: %w", err)
		}
	}

	settings := incremental.NewSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	engine, err := incremental.NewEngine(settings, elm, incremental.WithLogger(c.logger))
	if err != nil {
		return OrderSummary{}, err
	}
	results, err := engine.PerformOrderSelection(ctx)
	if err != nil {
		return OrderSummary{}, err
	}

	record := c.newRecord(model.RunKindOrder, req.Data.Seed, data.Name())
	record.Order = results
	if err := c.store.SaveRun(ctx, record); err != nil {
		return OrderSummary{}, fmt.Errorf("save run: %w", err)
	}
	return OrderSummary{RunID: record.ID, Results: results}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	runs, err := c.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		item := RunItem{
			RunID:        run.ID,
			Kind:         run.Kind,
			CreatedAtUTC: run.CreatedAtUTC,
			Dataset:      run.Dataset,
			Seed:         run.Seed,
		}
		if outcome, ok := run.Outcome(); ok {
			item.StoppingCondition = outcome.StoppingCondition
			item.FinalGeneralizationPerformance = outcome.FinalGeneralizationPerformance
			item.IterationsNumber = outcome.IterationsNumber
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) Run(ctx context.Context, id string) (model.RunRecord, error) {
	if err := c.ensureStore(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, id)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

func (c *Client) newRecord(kind string, seed int64, dataset string) model.RunRecord {
	return storage.Stamp(model.RunRecord{
		ID:           uuid.NewString(),
		Kind:         kind,
		CreatedAtUTC: c.now().UTC().Format(createdAtLayout),
		Seed:         seed,
		Dataset:      dataset,
	})
}

func (d DataSpec) build() (*evaluator.Dataset, *evaluator.ELM, error) {
	var (
		data *evaluator.Dataset
		err  error
	)
	switch {
	case d.Path != "":
		data, err = evaluator.LoadCSV(d.Path, evaluator.CSVOptions{
			Targets:            d.Targets,
			ValidationFraction: d.ValidationFraction,
		})
	case d.Synthetic != nil:
		data, err = evaluator.Synthetic(*d.Synthetic)
	default:
		return nil, nil, errors.New("a dataset path or synthetic options are required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	elm, err := evaluator.NewELM(data, evaluator.Config{
		Hidden:     d.Hidden,
		Ridge:      d.Ridge,
		Activation: d.Activation,
		Seed:       d.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	return data, elm, nil
}
