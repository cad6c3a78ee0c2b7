package evaluator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"structsearch/internal/model"
	"structsearch/internal/nn"
)

const (
	DefaultHidden = 10
	DefaultRidge  = 1e-3
)

type Config struct {
	// Hidden is the order used while selecting inputs, until an order is
	// installed.
	Hidden     int
	Ridge      float64
	Activation string
	Seed       int64
}

func (c Config) withDefaults() Config {
	if c.Hidden == 0 {
		c.Hidden = DefaultHidden
	}
	if c.Ridge == 0 {
		c.Ridge = DefaultRidge
	}
	if c.Activation == "" {
		c.Activation = nn.DefaultActivation
	}
	return c
}

// ELM trains single-hidden-layer perceptrons as extreme learning machines:
// hidden weights are drawn at random and only the output layer is fitted.
// The hidden draw is seeded by the structure, so evaluating a structure twice
// yields the same network. Safe for concurrent use.
type ELM struct {
	cfg     Config
	data    *Dataset
	inputs  []int
	targets []int

	trainX, trainY *mat.Dense
	validX, validY *mat.Dense

	mu        sync.RWMutex
	installed []bool
	order     int
	network   *nn.Perceptron
}

// NewELM snapshots the input and target columns of data. Input masks passed to
// the evaluator index those inputs in column order.
func NewELM(data *Dataset, cfg Config) (*ELM, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: dataset is required", ErrDataset)
	}
	cfg = cfg.withDefaults()
	if cfg.Hidden < 0 || cfg.Ridge < 0 {
		return nil, fmt.Errorf("invalid elm config: hidden=%d ridge=%g", cfg.Hidden, cfg.Ridge)
	}
	if _, err := nn.GetActivation(cfg.Activation); err != nil {
		return nil, err
	}

	inputs := data.indices(model.UseInput)
	targets := data.indices(model.UseTarget)
	if len(inputs) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("%w: need at least one input and one target", ErrDataset)
	}
	e := &ELM{
		cfg:       cfg,
		data:      data,
		inputs:    inputs,
		targets:   targets,
		installed: slices.Repeat([]bool{true}, len(inputs)),
		order:     cfg.Hidden,
	}
	e.trainX, e.validX = data.split(inputs)
	e.trainY, e.validY = data.split(targets)
	scaleColumns(e.trainX, e.validX)
	return e, nil
}

// scaleColumns maps every column to [-1, 1] using the training range.
func scaleColumns(training, validation *mat.Dense) {
	_, cols := training.Dims()
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, training)
		lo, hi := floats.Min(col), floats.Max(col)
		scale := func(m *mat.Dense) {
			rows, _ := m.Dims()
			for i := 0; i < rows; i++ {
				v := 0.0
				if hi != lo {
					v = (2*m.At(i, j) - (hi + lo)) / (hi - lo)
				}
				m.Set(i, j, v)
			}
		}
		scale(training)
		scale(validation)
	}
}

func (e *ELM) InputsNumber() int { return len(e.inputs) }

// InputNames lists the searched inputs in mask order.
func (e *ELM) InputNames() []string {
	names := make([]string, len(e.inputs))
	for i, c := range e.inputs {
		names[i] = e.data.columns[c]
	}
	return names
}

func (e *ELM) Installed() (inputs []bool, order int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.installed), e.order
}

// Network returns the installed network, or nil before any install.
func (e *ELM) Network() *nn.Perceptron {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.network
}

func (e *ELM) EvaluateInputs(ctx context.Context, inputs []bool) (model.Performance, error) {
	_, order := e.Installed()
	_, perf, err := e.train(ctx, inputs, order)
	return perf, err
}

func (e *ELM) InputsParameters(ctx context.Context, inputs []bool) ([]float64, error) {
	_, order := e.Installed()
	network, _, err := e.train(ctx, inputs, order)
	if err != nil {
		return nil, err
	}
	return network.Parameters(), nil
}

func (e *ELM) InstallInputs(_ context.Context, inputs []bool, parameters []float64) error {
	_, order := e.Installed()
	return e.install(inputs, order, parameters)
}

func (e *ELM) EvaluateOrder(ctx context.Context, order int) (model.Performance, error) {
	inputs, _ := e.Installed()
	_, perf, err := e.train(ctx, inputs, order)
	return perf, err
}

func (e *ELM) OrderParameters(ctx context.Context, order int) ([]float64, error) {
	inputs, _ := e.Installed()
	network, _, err := e.train(ctx, inputs, order)
	if err != nil {
		return nil, err
	}
	return network.Parameters(), nil
}

func (e *ELM) InstallOrder(_ context.Context, order int, parameters []float64) error {
	inputs, _ := e.Installed()
	return e.install(inputs, order, parameters)
}

func (e *ELM) VariableUses() []model.VariableUse {
	return e.data.VariableUses()
}

func (e *ELM) SetVariableUses(uses []model.VariableUse) error {
	return e.data.SetVariableUses(uses)
}

// InputImportance scores each input by the absolute Pearson correlation of
// its training values with the first target. Constant inputs score zero.
func (e *ELM) InputImportance(_ context.Context) ([]float64, error) {
	target := mat.Col(nil, 0, e.trainY)
	weights := make([]float64, len(e.inputs))
	for j := range weights {
		r := stat.Correlation(mat.Col(nil, j, e.trainX), target, nil)
		if math.IsNaN(r) {
			r = 0
		}
		weights[j] = math.Abs(r)
	}
	return weights, nil
}

func (e *ELM) install(inputs []bool, order int, parameters []float64) error {
	network, err := e.newNetwork(inputs, order)
	if err != nil {
		return err
	}
	if err := network.SetParameters(parameters); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	e.mu.Lock()
	e.installed = slices.Clone(inputs)
	e.order = order
	e.network = network
	e.mu.Unlock()
	return nil
}

func (e *ELM) newNetwork(inputs []bool, order int) (*nn.Perceptron, error) {
	if len(inputs) != len(e.inputs) {
		return nil, fmt.Errorf("%w: mask of %d inputs, want %d", nn.ErrShape, len(inputs), len(e.inputs))
	}
	selected := 0
	for _, bit := range inputs {
		if bit {
			selected++
		}
	}
	if selected == 0 {
		return nil, fmt.Errorf("%w: no inputs selected", nn.ErrShape)
	}
	if order <= 0 {
		return nil, fmt.Errorf("%w: hidden order must be > 0, got %d", nn.ErrShape, order)
	}
	return nn.NewPerceptron(selected, order, len(e.targets), e.cfg.Activation)
}

func (e *ELM) train(ctx context.Context, inputs []bool, order int) (*nn.Perceptron, model.Performance, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Performance{}, err
	}
	network, err := e.newNetwork(inputs, order)
	if err != nil {
		return nil, model.Performance{}, err
	}
	network.RandomizeHidden(rand.New(rand.NewSource(e.structureSeed(inputs, order))))

	trainX := selectColumns(e.trainX, inputs)
	if err := network.FitOutputs(trainX, e.trainY, e.cfg.Ridge); err != nil {
		return nil, model.Performance{}, err
	}
	training, err := meanSquaredError(network, trainX, e.trainY)
	if err != nil {
		return nil, model.Performance{}, err
	}
	generalization, err := meanSquaredError(network, selectColumns(e.validX, inputs), e.validY)
	if err != nil {
		return nil, model.Performance{}, err
	}
	return network, model.Performance{Training: training, Generalization: generalization}, nil
}

func (e *ELM) structureSeed(inputs []bool, order int) int64 {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(e.cfg.Seed, 10))
	b.WriteByte('|')
	for _, bit := range inputs {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(order))
	return int64(xxhash.Sum64String(b.String()))
}

func selectColumns(m *mat.Dense, mask []bool) *mat.Dense {
	rows, _ := m.Dims()
	var cols []int
	for j, bit := range mask {
		if bit {
			cols = append(cols, j)
		}
	}
	out := mat.NewDense(rows, len(cols), nil)
	for k, j := range cols {
		out.SetCol(k, mat.Col(nil, j, m))
	}
	return out
}

func meanSquaredError(network *nn.Perceptron, x, y *mat.Dense) (float64, error) {
	predicted, err := network.Forward(x)
	if err != nil {
		return 0, err
	}
	return nn.MeanSquaredError(predicted, y)
}
