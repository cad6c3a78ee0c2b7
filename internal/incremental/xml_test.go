package incremental

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structsearch/internal/model"
	"structsearch/internal/xmldoc"
)

func TestSettingsXMLRoundTrip(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.SetMaximumOrder(40))
	require.NoError(t, s.SetMinimumOrder(20))
	require.NoError(t, s.SetStep(5))
	require.NoError(t, s.SetMaximumGeneralizationFailures(3))
	require.NoError(t, s.SetMaximumTime(90*time.Second))
	require.NoError(t, s.SetTolerance(0.01))
	s.SetDisplay(false)

	path := filepath.Join(t.TempDir(), "order.xml")
	require.NoError(t, s.Save(path, nil))

	var loaded Settings
	errs, err := loaded.Load(path, nil)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, s, loaded)
}

func TestFromXMLKeepsMissingAndSkipsInvalid(t *testing.T) {
	doc := xmldoc.New(DocumentRoot)
	doc.Set("Step", "zero")
	doc.Set("MaximumOrder", "15")

	s := NewSettings()
	errs, err := s.FromXML(doc, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "Step", errs[0].Field)
	assert.Equal(t, 15, s.MaximumOrder())
	assert.Equal(t, DefaultStep, s.Step())
	assert.Equal(t, DefaultMinimumOrder, s.MinimumOrder())
}

func TestFromXMLLoadsRangeBelowCurrentMinimum(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.SetMaximumOrder(40))
	require.NoError(t, s.SetMinimumOrder(20))

	doc := xmldoc.New(DocumentRoot)
	doc.Set("MaximumOrder", "5")
	doc.Set("MinimumOrder", "1")
	doc.Set("Step", "2")
	errs, err := s.FromXML(doc, nil)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, 1, s.MinimumOrder())
	assert.Equal(t, 5, s.MaximumOrder())
	assert.Equal(t, 2, s.Step())
}

func TestFromXMLRejectsForeignDocument(t *testing.T) {
	s := NewSettings()
	_, err := s.FromXML(xmldoc.New("GeneticAlgorithm"), nil)
	assert.True(t, errors.Is(err, xmldoc.ErrDocumentRoot))

	path := filepath.Join(t.TempDir(), "bad.xml")
	require.NoError(t, xmldoc.New("Other").WriteFile(path))
	_, err = s.Load(path, nil)
	assert.True(t, errors.Is(err, xmldoc.ErrDocumentRoot))
}

func TestResultsXMLRoundTrip(t *testing.T) {
	results := &model.OrderSelectionResults{
		Outcome: model.Outcome{
			StoppingCondition:              model.BoundaryReached,
			FinalTrainingPerformance:       0.2,
			FinalGeneralizationPerformance: 0.5,
			ElapsedTime:                    time.Second,
			IterationsNumber:               3,
		},
		OptimalOrder: 3,
	}
	doc := NewSettings().ToXML()
	WriteResults(doc, results)

	data, err := doc.Bytes()
	require.NoError(t, err)
	decoded, err := xmldoc.Decode(strings.NewReader(string(data)), DocumentRoot)
	require.NoError(t, err)
	got, err := ReadResults(decoded)
	require.NoError(t, err)
	assert.Equal(t, results.Outcome, got.Outcome)
	assert.Equal(t, 3, got.OptimalOrder)

	none, err := ReadResults(NewSettings().ToXML())
	require.NoError(t, err)
	assert.Nil(t, none)
}
