package genetic

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"structsearch/internal/model"
	"structsearch/internal/xmldoc"
)

const DocumentRoot = "GeneticAlgorithm"

// XMLFields lists the persisted form of the settings. PopulationSize comes
// before ElitismSize so that loading onto defaults accepts every legal pair.
func (s *Settings) XMLFields() []xmldoc.Field {
	fields := s.Settings.XMLFields()
	return append(fields,
		xmldoc.Int("PopulationSize", func() int { return s.populationSize }, s.SetPopulationSize),
		xmldoc.Int("ElitismSize", func() int { return s.elitismSize }, s.SetElitismSize),
		xmldoc.Float("MutationRate", func() float64 { return s.mutationRate }, s.SetMutationRate),
		xmldoc.Int("CrossoverFirstPoint", func() int { return s.crossoverFirstPoint }, s.SetCrossoverFirstPoint),
		xmldoc.Int("CrossoverSecondPoint", func() int { return s.crossoverSecondPoint }, s.SetCrossoverSecondPoint),
		xmldoc.Float("SelectivePressure", func() float64 { return s.selectivePressure }, s.SetSelectivePressure),
		xmldoc.Enum("InitializationMethod",
			func() InitializationMethod { return s.initializationMethod },
			ParseInitializationMethod, s.SetInitializationMethod),
		xmldoc.Enum("CrossoverMethod",
			func() CrossoverMethod { return s.crossoverMethod },
			ParseCrossoverMethod, s.SetCrossoverMethod),
		xmldoc.Enum("FitnessAssignmentMethod",
			func() FitnessAssignment { return s.fitnessAssignmentMethod },
			ParseFitnessAssignment, s.SetFitnessAssignmentMethod),
		xmldoc.Int("MaximumGeneralizationFailures",
			func() int { return s.maximumGeneralizationFailures }, s.SetMaximumGeneralizationFailures),
		xmldoc.Bool("ReserveGenerationMean", func() bool { return s.reserveGenerationMean }, s.SetReserveGenerationMean),
		xmldoc.Bool("ReserveGenerationStandardDeviation",
			func() bool { return s.reserveGenerationStdDev }, s.SetReserveGenerationStandardDeviation),
		xmldoc.Bool("ReserveGenerationMinimum", func() bool { return s.reserveGenerationMinimum }, s.SetReserveGenerationMinimum),
		xmldoc.Field{
			Name:  "Seed",
			Write: func() string { return strconv.FormatInt(s.seed, 10) },
			Read: func(text string) error {
				seed, err := strconv.ParseInt(text, 10, 64)
				if err != nil {
					return err
				}
				s.SetSeed(seed)
				return nil
			},
		},
		xmldoc.Int("Workers", func() int { return s.workers }, s.SetWorkers),
		xmldoc.Bool("ReuseEvaluations", func() bool { return s.reuseEvaluations }, s.SetReuseEvaluations),
		xmldoc.Field{
			Name:  "ImportanceWeights",
			Write: func() string { return xmldoc.FormatFloats(s.importanceWeights) },
			Read: func(text string) error {
				weights, err := xmldoc.ParseFloats(text)
				if err != nil {
					return err
				}
				return s.SetImportanceWeights(weights)
			},
		},
	)
}

func (s Settings) ToXML() *xmldoc.Document {
	doc := xmldoc.New(DocumentRoot)
	xmldoc.Write(doc, s.XMLFields())
	return doc
}

// FromXML applies the fields present in doc over the current values. A wrong
// root is an error; bad fields are returned and skipped.
func (s *Settings) FromXML(doc *xmldoc.Document, logger *zap.Logger) (xmldoc.FieldErrors, error) {
	if doc == nil || doc.RootName() != DocumentRoot {
		name := ""
		if doc != nil {
			name = doc.RootName()
		}
		return nil, fmt.Errorf("%w: got %q, want %q", xmldoc.ErrDocumentRoot, name, DocumentRoot)
	}
	return xmldoc.Apply(doc, s.XMLFields(), logger), nil
}

// Save writes the settings, and the results when not nil, to path.
func (s Settings) Save(path string, results *model.InputsSelectionResults) error {
	doc := s.ToXML()
	if results != nil {
		WriteResults(doc, results)
	}
	return doc.WriteFile(path)
}

// Load resets the settings to their defaults and applies the document at
// path.
func (s *Settings) Load(path string, logger *zap.Logger) (xmldoc.FieldErrors, error) {
	doc, err := xmldoc.ReadFile(path, DocumentRoot)
	if err != nil {
		return nil, err
	}
	s.SetDefault()
	return s.FromXML(doc, logger)
}

func WriteResults(doc *xmldoc.Document, results *model.InputsSelectionResults) {
	block := doc.Block(xmldoc.ResultsBlock)
	xmldoc.WriteOutcome(block, results.Outcome)
	block.Set("OptimalInputs", xmldoc.FormatMask(results.OptimalInputs))
}

// ReadResults returns the terminal fields stored in doc, or nil when the
// document has no results block.
func ReadResults(doc *xmldoc.Document) (*model.InputsSelectionResults, error) {
	block, ok := doc.FindBlock(xmldoc.ResultsBlock)
	if !ok {
		return nil, nil
	}
	outcome, err := xmldoc.ReadOutcome(block)
	if err != nil {
		return nil, err
	}
	results := &model.InputsSelectionResults{Outcome: outcome}
	if text, ok := block.Lookup("OptimalInputs"); ok {
		if results.OptimalInputs, err = xmldoc.ParseMask(text); err != nil {
			return nil, fmt.Errorf("OptimalInputs: %w", err)
		}
	}
	return results, nil
}
