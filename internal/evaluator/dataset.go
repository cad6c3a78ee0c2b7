package evaluator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"structsearch/internal/model"
)

const DefaultValidationFraction = 0.2

var ErrDataset = errors.New("invalid dataset")

// Dataset is a numeric table whose columns are variables with a use each.
// The leading rows are the training instances and the rest are held out for
// validation.
type Dataset struct {
	name        string
	columns     []string
	values      *mat.Dense
	trainingEnd int

	mu   sync.RWMutex
	uses []model.VariableUse
}

// NewDataset builds a dataset from rows of equal width. Columns named in
// targets become targets; the others are inputs.
func NewDataset(name string, columns []string, rows [][]float64, targets []string, validationFraction float64) (*Dataset, error) {
	if len(columns) < 2 {
		return nil, fmt.Errorf("%w: need at least two columns, got %d", ErrDataset, len(columns))
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need at least two rows, got %d", ErrDataset, len(rows))
	}
	if validationFraction <= 0 || validationFraction >= 1 {
		return nil, fmt.Errorf("%w: validation fraction must be in (0, 1), got %g", ErrDataset, validationFraction)
	}

	uses := make([]model.VariableUse, len(columns))
	for _, target := range targets {
		idx := slices.Index(columns, target)
		if idx < 0 {
			return nil, fmt.Errorf("%w: unknown target column %q", ErrDataset, target)
		}
		uses[idx] = model.UseTarget
	}
	inputs, outputs := countUses(uses)
	if outputs == 0 || inputs == 0 {
		return nil, fmt.Errorf("%w: need at least one input and one target, got %d and %d", ErrDataset, inputs, outputs)
	}

	values := mat.NewDense(len(rows), len(columns), nil)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDataset, i+1, len(row), len(columns))
		}
		values.SetRow(i, row)
	}

	validation := int(float64(len(rows)) * validationFraction)
	validation = min(max(validation, 1), len(rows)-1)
	return &Dataset{
		name:        name,
		columns:     slices.Clone(columns),
		values:      values,
		trainingEnd: len(rows) - validation,
		uses:        uses,
	}, nil
}

type CSVOptions struct {
	Name string
	// Targets names the target columns. When empty, columns whose header
	// starts with "class" are targets, or else the last column.
	Targets            []string
	ValidationFraction float64
}

func ReadCSV(in io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty csv", ErrDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]float64
	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex, err)
		}
		row := make([]float64, len(record))
		for i, raw := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("parse csv row %d column %s: %w", rowIndex, header[i], err)
			}
			row[i] = value
		}
		rows = append(rows, row)
		rowIndex++
	}

	targets := opts.Targets
	if len(targets) == 0 {
		targets = defaultTargets(header)
	}
	fraction := opts.ValidationFraction
	if fraction == 0 {
		fraction = DefaultValidationFraction
	}
	return NewDataset(opts.Name, header, rows, targets, fraction)
}

func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if opts.Name == "" {
		opts.Name = path
	}
	return ReadCSV(f, opts)
}

func defaultTargets(header []string) []string {
	var targets []string
	for _, name := range header {
		if strings.HasPrefix(strings.ToLower(name), "class") {
			targets = append(targets, name)
		}
	}
	if len(targets) == 0 && len(header) > 0 {
		targets = []string{header[len(header)-1]}
	}
	return targets
}

func countUses(uses []model.VariableUse) (inputs, targets int) {
	for _, use := range uses {
		switch use {
		case model.UseInput:
			inputs++
		case model.UseTarget:
			targets++
		}
	}
	return inputs, targets
}

func (d *Dataset) Name() string { return d.name }
func (d *Dataset) Columns() []string { return slices.Clone(d.columns) }
func (d *Dataset) VariablesNumber() int { return len(d.columns) }

func (d *Dataset) InstancesNumber() int {
	r, _ := d.values.Dims()
	return r
}

func (d *Dataset) TrainingInstances() int { return d.trainingEnd }

func (d *Dataset) ValidationInstances() int {
	return d.InstancesNumber() - d.trainingEnd
}

func (d *Dataset) VariableUses() []model.VariableUse {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.uses)
}

// SetVariableUses replaces the uses. At least one input and one target must
// remain.
func (d *Dataset) SetVariableUses(uses []model.VariableUse) error {
	if len(uses) != len(d.columns) {
		return fmt.Errorf("%w: %d uses for %d variables", ErrDataset, len(uses), len(d.columns))
	}
	inputs, targets := countUses(uses)
	if inputs == 0 || targets == 0 {
		return fmt.Errorf("%w: need at least one input and one target", ErrDataset)
	}
	d.mu.Lock()
	d.uses = slices.Clone(uses)
	d.mu.Unlock()
	return nil
}

// indices returns the column indices with the given use.
func (d *Dataset) indices(use model.VariableUse) []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []int
	for i, u := range d.uses {
		if u == use {
			out = append(out, i)
		}
	}
	return out
}

func (d *Dataset) InputNames() []string {
	var names []string
	for _, i := range d.indices(model.UseInput) {
		names = append(names, d.columns[i])
	}
	return names
}

// split copies the given columns of the training and validation rows.
func (d *Dataset) split(columns []int) (training, validation *mat.Dense) {
	rows := d.InstancesNumber()
	training = mat.NewDense(d.trainingEnd, len(columns), nil)
	validation = mat.NewDense(rows-d.trainingEnd, len(columns), nil)
	for j, c := range columns {
		for i := 0; i < rows; i++ {
			if i < d.trainingEnd {
				training.Set(i, j, d.values.At(i, c))
			} else {
				validation.Set(i-d.trainingEnd, j, d.values.At(i, c))
			}
		}
	}
	return training, validation
}
