package structsearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structsearch/internal/evaluator"
	"structsearch/internal/genetic"
	"structsearch/internal/incremental"
	"structsearch/internal/model"
	"structsearch/internal/storage"
)

func syntheticSpec() DataSpec {
	return DataSpec{
		Synthetic: &evaluator.SyntheticOptions{Instances: 120, Inputs: 5, Informative: 2, Noise: 0.05, Seed: 3},
		Hidden:    6,
		Seed:      9,
	}
}

func newClient(t *testing.T, kind string) *Client {
	t.Helper()
	client, err := New(Options{StoreKind: kind})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientInputsThenOrderSelection(t *testing.T) {
	for _, kind := range []string{storage.KindMemory, storage.KindBadger} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			client := newClient(t, kind)

			gs := genetic.NewSettings()
			gs.SetDisplay(false)
			gs.SetSeed(21)
			require.NoError(t, gs.SetPopulationSize(6))
			require.NoError(t, gs.SetMaximumIterationsNumber(3))
			require.NoError(t, gs.SetWorkers(2))

			inputs, err := client.RunInputsSelection(ctx, InputsRequest{Data: syntheticSpec(), Settings: &gs})
			require.NoError(t, err)
			require.NotEmpty(t, inputs.RunID)
			require.Len(t, inputs.Results.OptimalInputs, 5)
			assert.NotEmpty(t, inputs.SelectedInputs)
			assert.LessOrEqual(t, inputs.Results.IterationsNumber, 4)

			is := incremental.NewSettings()
			is.SetDisplay(false)
			require.NoError(t, is.SetMaximumOrder(6))
			require.NoError(t, is.SetStep(2))

			order, err := client.RunOrderSelection(ctx, OrderRequest{
				Data:        syntheticSpec(),
				Settings:    &is,
				InputsRunID: inputs.RunID,
			})
			require.NoError(t, err)
			assert.Contains(t, []int{1, 3, 5, 6}, order.Results.OptimalOrder)
			assert.Equal(t, model.BoundaryReached, order.Results.StoppingCondition)

			runs, err := client.Runs(ctx, RunsRequest{})
			require.NoError(t, err)
			require.Len(t, runs, 2)
			kinds := []string{runs[0].Kind, runs[1].Kind}
			assert.ElementsMatch(t, []string{model.RunKindInputs, model.RunKindOrder}, kinds)

			stored, err := client.Run(ctx, order.RunID)
			require.NoError(t, err)
			require.NotNil(t, stored.Order)
			assert.Equal(t, order.Results.OptimalOrder, stored.Order.OptimalOrder)
			assert.Equal(t, "synthetic", stored.Dataset)
		})
	}
}

func TestClientOrderSelectionFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.csv")
	content := "x,noise,class\n"
	for i := 0; i < 30; i++ {
		// 7 is coprime with 30, so the validation rows fall inside the range.
		x := float64((i*7)%30) / 30
		content += formatRow(x, float64((i*11)%13)/13, 2*x+1)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	is := incremental.NewSettings()
	is.SetDisplay(false)
	require.NoError(t, is.SetMaximumOrder(3))

	client := newClient(t, "")
	summary, err := client.RunOrderSelection(context.Background(), OrderRequest{
		Data:     DataSpec{Path: path},
		Settings: &is,
		Inputs:   []bool{true, false},
	})
	require.NoError(t, err)
	assert.Less(t, summary.Results.FinalGeneralizationPerformance, 0.01)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	client := newClient(t, "")

	_, err := client.Run(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = client.RunInputsSelection(ctx, InputsRequest{})
	assert.Error(t, err)

	_, err = client.RunOrderSelection(ctx, OrderRequest{Data: syntheticSpec(), InputsRunID: "missing"})
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = New(Options{StoreKind: "etcd"})
	assert.Error(t, err)
}

func formatRow(values ...float64) string {
	row := ""
	for i, v := range values {
		if i > 0 {
			row += ","
		}
		row += strconv.FormatFloat(v, 'g', -1, 64)
	}
	return row + "\n"
}
