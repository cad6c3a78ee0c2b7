package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"structsearch/internal/evaluator"
	"structsearch/internal/genetic"
	"structsearch/internal/incremental"
	"structsearch/internal/logging"
	"structsearch/internal/search"
	"structsearch/internal/storage"
	"structsearch/pkg/structsearch"
)

// runOptions collects the inputs and order command options. Values come from
// defaults, then the config file, then explicitly set flags. Settings fields
// are only applied when set, so an XML settings file keeps its values.
type runOptions struct {
	StoreKind    string
	DBPath       string
	SettingsPath string
	SaveResults  string
	LogLevel     string

	DataPath        string
	Targets         []string
	Validation      float64
	SyntheticInputs int
	Hidden          int
	Ridge           float64
	Activation      string
	Seed            int64
	Workers         int
	Display         bool

	Trials            int
	TrialsMethod      string
	MaximumIterations int
	MaximumTime       float64
	Tolerance         float64
	Goal              float64
	MaximumFailures   int

	PopulationSize int
	ElitismSize    int
	MutationRate   float64
	Crossover      string
	Fitness        string
	Initialization string
	Reuse          bool

	MinimumOrder int
	MaximumOrder int
	Step         int
	InputsRunID  string

	set map[string]bool
}

func newRunOptions() *runOptions {
	return &runOptions{
		StoreKind:       storage.DefaultStoreKind(),
		DBPath:          "structsearch.db",
		LogLevel:        logging.DefaultLevel,
		Validation:      evaluator.DefaultValidationFraction,
		SyntheticInputs: 8,
		Hidden:          evaluator.DefaultHidden,
		Ridge:           evaluator.DefaultRidge,
		Activation:      "tanh",
		Seed:            1,
		Workers:         1,
		set:             make(map[string]bool),
	}
}

type optionSetter func(v any) bool

func (o *runOptions) setters() map[string]optionSetter {
	return map[string]optionSetter{
		"store":              stringInto(&o.StoreKind),
		"db-path":            stringInto(&o.DBPath),
		"settings":           stringInto(&o.SettingsPath),
		"save-results":       stringInto(&o.SaveResults),
		"log-level":          stringInto(&o.LogLevel),
		"data":               stringInto(&o.DataPath),
		"targets":            stringsInto(&o.Targets),
		"validation":         floatInto(&o.Validation),
		"synthetic-inputs":   intInto(&o.SyntheticInputs),
		"hidden":             intInto(&o.Hidden),
		"ridge":              floatInto(&o.Ridge),
		"activation":         stringInto(&o.Activation),
		"seed":               int64Into(&o.Seed),
		"workers":            intInto(&o.Workers),
		"display":            boolInto(&o.Display),
		"trials":             intInto(&o.Trials),
		"trials-method":      stringInto(&o.TrialsMethod),
		"maximum-iterations": intInto(&o.MaximumIterations),
		"maximum-time":       floatInto(&o.MaximumTime),
		"tolerance":          floatInto(&o.Tolerance),
		"goal":               floatInto(&o.Goal),
		"maximum-failures":   intInto(&o.MaximumFailures),
		"population-size":    intInto(&o.PopulationSize),
		"elitism-size":       intInto(&o.ElitismSize),
		"mutation-rate":      floatInto(&o.MutationRate),
		"crossover":          stringInto(&o.Crossover),
		"fitness-assignment": stringInto(&o.Fitness),
		"initialization":     stringInto(&o.Initialization),
		"reuse-evaluations":  boolInto(&o.Reuse),
		"minimum-order":      intInto(&o.MinimumOrder),
		"maximum-order":      intInto(&o.MaximumOrder),
		"step":               intInto(&o.Step),
		"inputs-run-id":      stringInto(&o.InputsRunID),
	}
}

func (o *runOptions) assign(name string, v any) error {
	set, ok := o.setters()[name]
	if !ok {
		return fmt.Errorf("unknown option %q", name)
	}
	if !set(v) {
		return fmt.Errorf("option %s: unexpected value %v", name, v)
	}
	o.set[name] = true
	return nil
}

func (o *runOptions) isSet(name string) bool {
	return o.set[name]
}

// loadConfigFile reads a JSON or YAML map. Keys use either dashes or
// underscores.
func (o *runOptions) loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := o.assign(strings.ReplaceAll(key, "_", "-"), raw[key]); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}
	return nil
}

// overrideFromFlags applies the flags given on the command line.
func (o *runOptions) overrideFromFlags(fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil || f.Name == "config" {
			return
		}
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		if _, known := o.setters()[f.Name]; !known {
			return
		}
		err = o.assign(f.Name, getter.Get())
	})
	return err
}

func (o *runOptions) applySearch(s *search.Settings) error {
	if o.isSet("display") {
		s.SetDisplay(o.Display)
	}
	if o.isSet("trials") {
		if err := s.SetTrialsNumber(o.Trials); err != nil {
			return err
		}
	}
	if o.isSet("trials-method") {
		m, err := search.ParsePerformanceCalculationMethod(o.TrialsMethod)
		if err != nil {
			return err
		}
		if err := s.SetPerformanceCalculationMethod(m); err != nil {
			return err
		}
	}
	if o.isSet("maximum-iterations") {
		if err := s.SetMaximumIterationsNumber(o.MaximumIterations); err != nil {
			return err
		}
	}
	if o.isSet("maximum-time") {
		if err := s.SetMaximumTime(time.Duration(o.MaximumTime * float64(time.Second))); err != nil {
			return err
		}
	}
	if o.isSet("tolerance") {
		if err := s.SetTolerance(o.Tolerance); err != nil {
			return err
		}
	}
	if o.isSet("goal") {
		if err := s.SetGeneralizationPerformanceGoal(o.Goal); err != nil {
			return err
		}
	}
	return nil
}

func (o *runOptions) geneticSettings(logger *zap.Logger) (genetic.Settings, error) {
	s := genetic.NewSettings()
	if o.SettingsPath != "" {
		if _, err := s.Load(o.SettingsPath, logger); err != nil {
			return s, err
		}
	}
	if err := o.applySearch(&s.Settings); err != nil {
		return s, err
	}
	// Population before elitism so a larger elite fits.
	if o.isSet("population-size") {
		if err := s.SetPopulationSize(o.PopulationSize); err != nil {
			return s, err
		}
	}
	if o.isSet("elitism-size") {
		if err := s.SetElitismSize(o.ElitismSize); err != nil {
			return s, err
		}
	}
	if o.isSet("mutation-rate") {
		if err := s.SetMutationRate(o.MutationRate); err != nil {
			return s, err
		}
	}
	if o.isSet("crossover") {
		m, err := genetic.ParseCrossoverMethod(o.Crossover)
		if err != nil {
			return s, err
		}
		if err := s.SetCrossoverMethod(m); err != nil {
			return s, err
		}
	}
	if o.isSet("fitness-assignment") {
		m, err := genetic.ParseFitnessAssignment(o.Fitness)
		if err != nil {
			return s, err
		}
		if err := s.SetFitnessAssignmentMethod(m); err != nil {
			return s, err
		}
	}
	if o.isSet("initialization") {
		m, err := genetic.ParseInitializationMethod(o.Initialization)
		if err != nil {
			return s, err
		}
		if err := s.SetInitializationMethod(m); err != nil {
			return s, err
		}
	}
	if o.isSet("maximum-failures") {
		if err := s.SetMaximumGeneralizationFailures(o.MaximumFailures); err != nil {
			return s, err
		}
	}
	if o.isSet("workers") {
		if err := s.SetWorkers(o.Workers); err != nil {
			return s, err
		}
	}
	if o.isSet("seed") {
		s.SetSeed(o.Seed)
	}
	if o.isSet("reuse-evaluations") {
		s.SetReuseEvaluations(o.Reuse)
	}
	return s, nil
}

func (o *runOptions) incrementalSettings(logger *zap.Logger) (incremental.Settings, error) {
	s := incremental.NewSettings()
	if o.SettingsPath != "" {
		if _, err := s.Load(o.SettingsPath, logger); err != nil {
			return s, err
		}
	}
	if err := o.applySearch(&s.Settings); err != nil {
		return s, err
	}
	// Maximum before minimum so a range above the current one is accepted.
	if o.isSet("maximum-order") {
		if err := s.SetMaximumOrder(o.MaximumOrder); err != nil {
			return s, err
		}
	}
	if o.isSet("minimum-order") {
		if err := s.SetMinimumOrder(o.MinimumOrder); err != nil {
			return s, err
		}
	}
	if o.isSet("step") {
		if err := s.SetStep(o.Step); err != nil {
			return s, err
		}
	}
	if o.isSet("maximum-failures") {
		if err := s.SetMaximumGeneralizationFailures(o.MaximumFailures); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (o *runOptions) dataSpec() structsearch.DataSpec {
	spec := structsearch.DataSpec{
		Path:               o.DataPath,
		Targets:            o.Targets,
		ValidationFraction: o.Validation,
		Hidden:             o.Hidden,
		Ridge:              o.Ridge,
		Activation:         o.Activation,
		Seed:               o.Seed,
	}
	if o.DataPath == "" {
		spec.Synthetic = &evaluator.SyntheticOptions{
			Instances:   300,
			Inputs:      o.SyntheticInputs,
			Informative: max(1, o.SyntheticInputs/3),
			Noise:       0.05,
			Seed:        o.Seed,
		}
	}
	return spec
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func stringInto(dst *string) optionSetter {
	return func(v any) bool {
		s, ok := asString(v)
		if ok {
			*dst = s
		}
		return ok
	}
}

func stringsInto(dst *[]string) optionSetter {
	return func(v any) bool {
		s, ok := asStrings(v)
		if ok {
			*dst = s
		}
		return ok
	}
}

func boolInto(dst *bool) optionSetter {
	return func(v any) bool {
		b, ok := asBool(v)
		if ok {
			*dst = b
		}
		return ok
	}
}

func intInto(dst *int) optionSetter {
	return func(v any) bool {
		n, ok := asInt(v)
		if ok {
			*dst = n
		}
		return ok
	}
}

func int64Into(dst *int64) optionSetter {
	return func(v any) bool {
		n, ok := asInt64(v)
		if ok {
			*dst = n
		}
		return ok
	}
}

func floatInto(dst *float64) optionSetter {
	return func(v any) bool {
		f, ok := asFloat64(v)
		if ok {
			*dst = f
		}
		return ok
	}
}
