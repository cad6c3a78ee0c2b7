package evaluator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structsearch/internal/model"
)

func TestReadCSVDefaultsToClassTargets(t *testing.T) {
	in := strings.NewReader("a, b, class_out\n1,2,0\n3,4,1\n5,6,0\n7,8,1\n9,10,0\n")
	data, err := ReadCSV(in, CSVOptions{Name: "tiny"})
	require.NoError(t, err)

	assert.Equal(t, "tiny", data.Name())
	assert.Equal(t, []string{"a", "b", "class_out"}, data.Columns())
	assert.Equal(t, []model.VariableUse{model.UseInput, model.UseInput, model.UseTarget}, data.VariableUses())
	assert.Equal(t, 5, data.InstancesNumber())
	assert.Equal(t, 4, data.TrainingInstances())
	assert.Equal(t, 1, data.ValidationInstances())
}

func TestReadCSVFallsBackToLastColumn(t *testing.T) {
	data, err := ReadCSV(strings.NewReader("x,y,z\n1,2,3\n4,5,6\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, data.InputNames())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	assert.True(t, errors.Is(err, ErrDataset))

	_, err = ReadCSV(strings.NewReader("x,y\n1,abc\n2,3\n"), CSVOptions{})
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("x,y\n1,2\n2,3\n"), CSVOptions{Targets: []string{"w"}})
	assert.True(t, errors.Is(err, ErrDataset))

	_, err = ReadCSV(strings.NewReader("x,y\n1,2\n2,3\n"), CSVOptions{ValidationFraction: 1.5})
	assert.True(t, errors.Is(err, ErrDataset))
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n1,2\n2,4\n3,6\n"), 0o644))
	data, err := LoadCSV(path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, path, data.Name())

	_, err = LoadCSV("", CSVOptions{})
	assert.Error(t, err)
}

func TestSetVariableUsesValidates(t *testing.T) {
	data, err := ReadCSV(strings.NewReader("a,b,y\n1,2,3\n4,5,6\n"), CSVOptions{})
	require.NoError(t, err)

	assert.Error(t, data.SetVariableUses([]model.VariableUse{model.UseInput}))
	assert.Error(t, data.SetVariableUses([]model.VariableUse{model.UseUnused, model.UseUnused, model.UseTarget}))

	uses := []model.VariableUse{model.UseUnused, model.UseInput, model.UseTarget}
	require.NoError(t, data.SetVariableUses(uses))
	uses[0] = model.UseTarget
	assert.Equal(t, model.UseUnused, data.VariableUses()[0])
	assert.Equal(t, []string{"b"}, data.InputNames())
}

func TestSyntheticDataset(t *testing.T) {
	data, err := Synthetic(SyntheticOptions{Instances: 50, Inputs: 4, Informative: 2, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "x3", "x4"}, data.InputNames())
	assert.Equal(t, 40, data.TrainingInstances())

	again, err := Synthetic(SyntheticOptions{Instances: 50, Inputs: 4, Informative: 2, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, data.values.RawMatrix().Data, again.values.RawMatrix().Data)

	_, err = Synthetic(SyntheticOptions{Instances: 50, Inputs: 2, Informative: 3})
	assert.True(t, errors.Is(err, ErrDataset))
}
