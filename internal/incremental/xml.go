package incremental

import (
	"fmt"

	"go.uber.org/zap"

	"structsearch/internal/model"
	"structsearch/internal/xmldoc"
)

const DocumentRoot = "IncrementalOrder"

// XMLFields lists the persisted form of the settings. MaximumOrder is loaded
// first so a range above the defaults is accepted.
func (s *Settings) XMLFields() []xmldoc.Field {
	return append(s.Settings.XMLFields(),
		xmldoc.Int("MaximumOrder", func() int { return s.maximumOrder }, s.SetMaximumOrder),
		xmldoc.Int("MinimumOrder", func() int { return s.minimumOrder }, s.SetMinimumOrder),
		xmldoc.Int("Step", func() int { return s.step }, s.SetStep),
		xmldoc.Int("MaximumGeneralizationFailures",
			func() int { return s.maximumGeneralizationFailures }, s.SetMaximumGeneralizationFailures),
	)
}

func (s Settings) ToXML() *xmldoc.Document {
	doc := xmldoc.New(DocumentRoot)
	xmldoc.Write(doc, s.XMLFields())
	return doc
}

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

func (s Settings) Save(path string, results *model.OrderSelectionResults) error {
	doc := s.ToXML()
	if results != nil {
		WriteResults(doc, results)
	}
	return doc.WriteFile(path)
}

func (s *Settings) Load(path string, logger *zap.Logger) (xmldoc.FieldErrors, error) {
	doc, err := xmldoc.ReadFile(path, DocumentRoot)
	if err != nil {
		return nil, err
	}
	s.SetDefault()
	return s.FromXML(doc, logger)
}

func WriteResults(doc *xmldoc.Document, results *model.OrderSelectionResults) {
	block := doc.Block(xmldoc.ResultsBlock)
	xmldoc.WriteOutcome(block, results.Outcome)
	block.Set("OptimalOrder", xmldoc.FormatInt(results.OptimalOrder))
}

func ReadResults(doc *xmldoc.Document) (*model.OrderSelectionResults, error) {
	block, ok := doc.FindBlock(xmldoc.ResultsBlock)
	if !ok {
		return nil, nil
	}
	outcome, err := xmldoc.ReadOutcome(block)
	if err != nil {
		return nil, err
	}
	results := &model.OrderSelectionResults{Outcome: outcome}
	if text, ok := block.Lookup("OptimalOrder"); ok {
		if results.OptimalOrder, err = xmldoc.ParseInt(text); err != nil {
			return nil, fmt.Errorf("OptimalOrder: %w", err)
		}
	}
	return results, nil
}
