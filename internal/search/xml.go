package search

import (
	"time"

	"structsearch/internal/xmldoc"
)

// XMLFields lists the persisted form of the shared settings.
func (s *Settings) XMLFields() []xmldoc.Field {
	return []xmldoc.Field{
		xmldoc.Int("TrialsNumber", func() int { return s.trialsNumber }, s.SetTrialsNumber),
		xmldoc.Enum("PerformanceCalculationMethod",
			func() PerformanceCalculationMethod { return s.performanceCalculationMethod },
			ParsePerformanceCalculationMethod, s.SetPerformanceCalculationMethod),
		xmldoc.Bool("ReservePerformanceData", func() bool { return s.reservePerformanceData }, s.SetReservePerformanceData),
		xmldoc.Bool("ReserveGeneralizationPerformanceData",
			func() bool { return s.reserveGeneralizationPerformanceData }, s.SetReserveGeneralizationPerformanceData),
		xmldoc.Bool("ReserveParametersData", func() bool { return s.reserveParametersData }, s.SetReserveParametersData),
		xmldoc.Bool("ReserveMinimalParameters", func() bool { return s.reserveMinimalParameters }, s.SetReserveMinimalParameters),
		xmldoc.Bool("Display", func() bool { return s.display }, s.SetDisplay),
		xmldoc.Float("GeneralizationPerformanceGoal",
			func() float64 { return s.generalizationPerformanceGoal }, s.SetGeneralizationPerformanceGoal),
		xmldoc.Int("MaximumIterationsNumber", func() int { return s.maximumIterationsNumber }, s.SetMaximumIterationsNumber),
		xmldoc.Seconds("MaximumTime", func() time.Duration { return s.maximumTime }, s.SetMaximumTime),
		xmldoc.Float("Tolerance", func() float64 { return s.tolerance }, s.SetTolerance),
	}
}
