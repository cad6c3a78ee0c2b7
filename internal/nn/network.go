package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var ErrShape = errors.New("shape mismatch")

// Perceptron is a single-hidden-layer network: inputs feed an activated
// hidden layer whose outputs are combined linearly.
//
// Parameters are laid out as hidden weights (row-major, inputs x hidden),
// hidden biases, output weights (row-major, hidden x outputs), output biases.
type Perceptron struct {
	activationName string
	activation     ActivationFunc

	hiddenWeights *mat.Dense // inputs x hidden
	hiddenBiases  *mat.VecDense
	outputWeights *mat.Dense // hidden x outputs
	outputBiases  *mat.VecDense
}

func NewPerceptron(inputs, hidden, outputs int, activation string) (*Perceptron, error) {
	if inputs <= 0 || hidden <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: inputs=%d hidden=%d outputs=%d", ErrShape, inputs, hidden, outputs)
	}
	fn, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	return &Perceptron{
		activationName: activation,
		activation:     fn,
		hiddenWeights:  mat.NewDense(inputs, hidden, nil),
		hiddenBiases:   mat.NewVecDense(hidden, nil),
		outputWeights:  mat.NewDense(hidden, outputs, nil),
		outputBiases:   mat.NewVecDense(outputs, nil),
	}, nil
}

func (p *Perceptron) InputsNumber() int {
	r, _ := p.hiddenWeights.Dims()
	return r
}

func (p *Perceptron) HiddenNumber() int {
	_, c := p.hiddenWeights.Dims()
	return c
}

func (p *Perceptron) OutputsNumber() int {
	_, c := p.outputWeights.Dims()
	return c
}

func (p *Perceptron) Activation() string { return p.activationName }

func (p *Perceptron) ParametersNumber() int {
	inputs, hidden, outputs := p.InputsNumber(), p.HiddenNumber(), p.OutputsNumber()
	return inputs*hidden + hidden + hidden*outputs + outputs
}

// RandomizeHidden draws hidden weights and biases uniformly from [-1, 1].
func (p *Perceptron) RandomizeHidden(rng *rand.Rand) {
	inputs, hidden := p.hiddenWeights.Dims()
	for i := 0; i < inputs; i++ {
		for j := 0; j < hidden; j++ {
			p.hiddenWeights.Set(i, j, 2*rng.Float64()-1)
		}
	}
	for j := 0; j < hidden; j++ {
		p.hiddenBiases.SetVec(j, 2*rng.Float64()-1)
	}
}

// HiddenOutputs returns the activated hidden layer for a batch of rows.
func (p *Perceptron) HiddenOutputs(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShape)
	}
	if cols != p.InputsNumber() {
		return nil, fmt.Errorf("%w: %d input columns, want %d", ErrShape, cols, p.InputsNumber())
	}
	var h mat.Dense
	h.Mul(x, p.hiddenWeights)
	h.Apply(func(_, j int, v float64) float64 {
		return p.activation(v + p.hiddenBiases.AtVec(j))
	}, &h)
	return &h, nil
}

// Forward computes the outputs for a batch of rows.
func (p *Perceptron) Forward(x mat.Matrix) (*mat.Dense, error) {
	h, err := p.HiddenOutputs(x)
	if err != nil {
		return nil, err
	}
	return p.outputsFrom(h), nil
}

func (p *Perceptron) outputsFrom(h *mat.Dense) *mat.Dense {
	var y mat.Dense
	y.Mul(h, p.outputWeights)
	y.Apply(func(_, j int, v float64) float64 {
		return v + p.outputBiases.AtVec(j)
	}, &y)
	return &y
}

// FitOutputs solves the output layer by ridge-regularized least squares on
// the hidden outputs of x, keeping the hidden layer fixed.
func (p *Perceptron) FitOutputs(x, targets mat.Matrix, ridge float64) error {
	h, err := p.HiddenOutputs(x)
	if err != nil {
		return err
	}
	rows, hidden := h.Dims()
	tRows, outputs := targets.Dims()
	if tRows != rows || outputs != p.OutputsNumber() {
		return fmt.Errorf("%w: targets %dx%d for %d rows and %d outputs", ErrShape, tRows, outputs, rows, p.OutputsNumber())
	}

	// Augment with a column of ones so the bias is solved together with the
	// weights; the bias is not regularized.
	aug := mat.NewDense(rows, hidden+1, nil)
	aug.Copy(h)
	for i := 0; i < rows; i++ {
		aug.Set(i, hidden, 1)
	}
	var gram mat.Dense
	gram.Mul(aug.T(), aug)
	for j := 0; j < hidden; j++ {
		gram.Set(j, j, gram.At(j, j)+ridge)
	}
	var rhs mat.Dense
	rhs.Mul(aug.T(), targets)

	var beta mat.Dense
	if err := beta.Solve(&gram, &rhs); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("solve output layer: %w", err)
		}
	}
	p.outputWeights.Copy(beta.Slice(0, hidden, 0, outputs))
	for k := 0; k < outputs; k++ {
		p.outputBiases.SetVec(k, beta.At(hidden, k))
	}
	return nil
}

func (p *Perceptron) Parameters() []float64 {
	out := make([]float64, 0, p.ParametersNumber())
	out = appendDense(out, p.hiddenWeights)
	out = append(out, p.hiddenBiases.RawVector().Data...)
	out = appendDense(out, p.outputWeights)
	out = append(out, p.outputBiases.RawVector().Data...)
	return out
}

func (p *Perceptron) SetParameters(params []float64) error {
	if len(params) != p.ParametersNumber() {
		return fmt.Errorf("%w: %d parameters, want %d", ErrShape, len(params), p.ParametersNumber())
	}
	params = fillDense(p.hiddenWeights, params)
	params = fillVec(p.hiddenBiases, params)
	params = fillDense(p.outputWeights, params)
	fillVec(p.outputBiases, params)
	return nil
}

func appendDense(out []float64, m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		out = append(out, m.RawRowView(i)[:cols]...)
	}
	return out
}

func fillDense(m *mat.Dense, params []float64) []float64 {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		m.SetRow(i, params[:cols])
		params = params[cols:]
	}
	return params
}

func fillVec(v *mat.VecDense, params []float64) []float64 {
	n := v.Len()
	for i := 0; i < n; i++ {
		v.SetVec(i, params[i])
	}
	return params[n:]
}

// MeanSquaredError averages the squared differences over every element.
func MeanSquaredError(predicted, targets mat.Matrix) (float64, error) {
	pr, pc := predicted.Dims()
	tr, tc := targets.Dims()
	if pr != tr || pc != tc {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShape, pr, pc, tr, tc)
	}
	var diff mat.Dense
	diff.Sub(predicted, targets)
	diff.MulElem(&diff, &diff)
	return mat.Sum(&diff) / float64(pr*pc), nil
}
