package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"structsearch/internal/genetic"
	"structsearch/internal/search"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFileYAMLThenFlagsOverride(t *testing.T) {
	path := writeFile(t, "options.yaml", `
population_size: 30
elitism-size: 4
mutation_rate: 0.2
targets: [y, z]
maximum_time: 1.5
crossover: TwoPoint
seed: 77
display: true
`)
	opts := newRunOptions()
	fs := flag.NewFlagSet("inputs", flag.ContinueOnError)
	configPath := searchFlags(fs, opts)
	fs.Int("population-size", genetic.DefaultPopulationSize, "")
	fs.Int("elitism-size", 0, "")
	fs.Float64("mutation-rate", 0, "")
	fs.String("crossover", "", "")
	require.NoError(t, fs.Parse([]string{"-config", path, "-population-size", "12", "-seed", "5"}))
	require.NoError(t, prepareOptions(fs, opts, *configPath))

	assert.Equal(t, 12, opts.PopulationSize)
	assert.Equal(t, 4, opts.ElitismSize)
	assert.Equal(t, []string{"y", "z"}, opts.Targets)
	assert.Equal(t, int64(5), opts.Seed)
	assert.True(t, opts.isSet("display"))
	assert.False(t, opts.isSet("ridge"))

	settings, err := opts.geneticSettings(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 12, settings.PopulationSize())
	assert.Equal(t, 4, settings.ElitismSize())
	assert.Equal(t, 0.2, settings.MutationRate())
	assert.Equal(t, genetic.TwoPoint, settings.CrossoverMethod())
	assert.Equal(t, 1500*time.Millisecond, settings.MaximumTime())
	assert.Equal(t, int64(5), settings.Seed())
	assert.True(t, settings.Display())
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeFile(t, "options.json", `{"maximum_order": 20, "minimum_order": 12, "step": 4, "trials": 3, "trials_method": "Mean", "targets": "a, b"}`)
	opts := newRunOptions()
	require.NoError(t, opts.loadConfigFile(path))
	assert.Equal(t, []string{"a", "b"}, opts.Targets)

	settings, err := opts.incrementalSettings(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 12, settings.MinimumOrder())
	assert.Equal(t, 20, settings.MaximumOrder())
	assert.Equal(t, 4, settings.Step())
	assert.Equal(t, 3, settings.TrialsNumber())
	assert.Equal(t, search.Mean, settings.PerformanceCalculationMethod())
}

func TestLoadConfigFileRejectsUnknownAndMistyped(t *testing.T) {
	opts := newRunOptions()
	err := opts.loadConfigFile(writeFile(t, "bad.yaml", "populaton_size: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown option")

	err = opts.loadConfigFile(writeFile(t, "typed.yaml", "hidden: many\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "option hidden")

	require.Error(t, opts.loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestSettingsFileKeepsValuesNotOverridden(t *testing.T) {
	base := genetic.NewSettings()
	require.NoError(t, base.SetPopulationSize(16))
	require.NoError(t, base.SetMutationRate(0.3))
	path := filepath.Join(t.TempDir(), "ga.xml")
	require.NoError(t, base.Save(path, nil))

	opts := newRunOptions()
	opts.SettingsPath = path
	require.NoError(t, opts.assign("mutation-rate", 0.05))

	settings, err := opts.geneticSettings(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 16, settings.PopulationSize())
	assert.Equal(t, 0.05, settings.MutationRate())
}

func TestInvalidSettingValueIsReported(t *testing.T) {
	opts := newRunOptions()
	require.NoError(t, opts.assign("step", 0))
	_, err := opts.incrementalSettings(zap.NewNop())
	require.ErrorIs(t, err, search.ErrInvalidSetting)

	opts = newRunOptions()
	require.NoError(t, opts.assign("fitness-assignment", "Lottery"))
	_, err = opts.geneticSettings(zap.NewNop())
	require.Error(t, err)
}

func TestDataSpecFallsBackToSynthetic(t *testing.T) {
	opts := newRunOptions()
	opts.SyntheticInputs = 9
	spec := opts.dataSpec()
	require.NotNil(t, spec.Synthetic)
	assert.Equal(t, 9, spec.Synthetic.Inputs)
	assert.Equal(t, 3, spec.Synthetic.Informative)

	opts.DataPath = "data.csv"
	assert.Nil(t, opts.dataSpec().Synthetic)
}
