package xmldoc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Field binds one element name to a value of a settings struct. Read runs
// the matching setter and must leave the value untouched on error.
type Field struct {
	Name  string
	Write func() string
	Read  func(text string) error
}

type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// FieldErrors collects the fields that failed to load.
type FieldErrors []FieldError

func (errs FieldErrors) Error() string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// Err returns nil when no field failed.
func (errs FieldErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func Write(doc *Document, fields []Field) {
	for _, f := range fields {
		doc.Set(f.Name, f.Write())
	}
}

// Apply loads every field present in doc. Missing elements are skipped and
// failing fields are collected, so one bad value never aborts the load.
// Rejected fields are retried while another pass makes progress, so fields
// validated against each other load whatever the current values are.
func Apply(doc *Document, fields []Field, logger *zap.Logger) FieldErrors {
	if logger == nil {
		logger = zap.NewNop()
	}
	type pending struct {
		field Field
		text  string
		err   error
	}
	var queue []pending
	for _, f := range fields {
		if text, ok := doc.Lookup(f.Name); ok {
			queue = append(queue, pending{field: f, text: text})
		}
	}
	for len(queue) > 0 {
		var failed []pending
		for _, p := range queue {
			if p.err = p.field.Read(p.text); p.err != nil {
				failed = append(failed, p)
			}
		}
		if len(failed) == len(queue) {
			queue = failed
			break
		}
		queue = failed
	}

	var errs FieldErrors
	for _, p := range queue {
		logger.Warn("skipping invalid field",
			zap.String("document", doc.RootName()),
			zap.String("field", p.field.Name),
			zap.String("value", p.text),
			zap.Error(p.err),
		)
		errs = append(errs, FieldError{Field: p.field.Name, Err: p.err})
	}
	return errs
}

func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func ParseBool(text string) (bool, error) {
	switch text {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", text)
	}
}

func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func ParseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

func FormatInt(v int) string {
	return strconv.Itoa(v)
}

func ParseInt(text string) (int, error) {
	return strconv.Atoi(text)
}

// FormatSeconds writes a duration as decimal seconds with at most nine
// fractional digits, exact for every duration.
func FormatSeconds(d time.Duration) string {
	sign := ""
	whole, frac := d/time.Second, d%time.Second
	if d < 0 {
		sign = "-"
		whole, frac = -whole, -frac
	}
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, int64(whole))
	}
	digits := strings.TrimRight(fmt.Sprintf("%09d", int64(frac)), "0")
	return fmt.Sprintf("%s%d.%s", sign, int64(whole), digits)
}

// ParseSeconds reads decimal seconds. Plain decimals are read exactly;
// exponent forms go through float64. Values outside the time.Duration range
// are errors.
func ParseSeconds(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if d, ok, err := parseDecimalSeconds(text); ok {
		return d, err
	}
	seconds, err := ParseFloat(text)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("invalid duration %q", text)
	}
	ns := math.Round(seconds * float64(time.Second))
	if ns >= math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("duration %q out of range", text)
	}
	return time.Duration(ns), nil
}

// parseDecimalSeconds handles [-]digits[.digits]. ok is false when text has
// another form.
func parseDecimalSeconds(text string) (time.Duration, bool, error) {
	body, negative := strings.CutPrefix(text, "-")
	wholeText, fracText, _ := strings.Cut(body, ".")
	if wholeText == "" || !isDigits(wholeText) || !isDigits(fracText) {
		return 0, false, nil
	}
	outOfRange := fmt.Errorf("duration %q out of range", text)
	whole, err := strconv.ParseInt(wholeText, 10, 64)
	if err != nil {
		return 0, true, outOfRange
	}
	if len(fracText) > 9 {
		fracText = fracText[:9]
	}
	var frac int64
	if fracText != "" {
		frac, _ = strconv.ParseInt(fracText+strings.Repeat("0", 9-len(fracText)), 10, 64)
	}
	limit := int64(math.MaxInt64)
	if negative {
		// One more nanosecond fits below zero.
		if whole == -(math.MinInt64/int64(time.Second)) && frac == -(math.MinInt64%int64(time.Second)) {
			return math.MinInt64, true, nil
		}
	}
	if whole > (limit-frac)/int64(time.Second) {
		return 0, true, outOfRange
	}
	total := whole*int64(time.Second) + frac
	if negative {
		total = -total
	}
	return time.Duration(total), true, nil
}

func isDigits(text string) bool {
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func FormatMask(mask []bool) string {
	parts := make([]string, len(mask))
	for i, bit := range mask {
		parts[i] = FormatBool(bit)
	}
	return strings.Join(parts, " ")
}

func ParseMask(text string) ([]bool, error) {
	fields := strings.Fields(text)
	mask := make([]bool, len(fields))
	for i, f := range fields {
		bit, err := ParseBool(f)
		if err != nil {
			return nil, err
		}
		mask[i] = bit
	}
	return mask, nil
}

func FormatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, " ")
}

func ParseFloats(text string) ([]float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, nil
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Bool, Int, Float and Seconds build fields around a getter and a setter.

func Bool(name string, get func() bool, set func(bool)) Field {
	return Field{
		Name:  name,
		Write: func() string { return FormatBool(get()) },
		Read: func(text string) error {
			v, err := ParseBool(text)
			if err != nil {
				return err
			}
			set(v)
			return nil
		},
	}
}

func Int(name string, get func() int, set func(int) error) Field {
	return Field{
		Name:  name,
		Write: func() string { return FormatInt(get()) },
		Read: func(text string) error {
			v, err := ParseInt(text)
			if err != nil {
				return err
			}
			return set(v)
		},
	}
}

func Float(name string, get func() float64, set func(float64) error) Field {
	return Field{
		Name:  name,
		Write: func() string { return FormatFloat(get()) },
		Read: func(text string) error {
			v, err := ParseFloat(text)
			if err != nil {
				return err
			}
			return set(v)
		},
	}
}

func Seconds(name string, get func() time.Duration, set func(time.Duration) error) Field {
	return Field{
		Name:  name,
		Write: func() string { return FormatSeconds(get()) },
		Read: func(text string) error {
			v, err := ParseSeconds(text)
			if err != nil {
				return err
			}
			return set(v)
		},
	}
}

// Enum builds a field for a named enumeration.
func Enum[T fmt.Stringer](name string, get func() T, parse func(string) (T, error), set func(T) error) Field {
	return Field{
		Name:  name,
		Write: func() string { return get().String() },
		Read: func(text string) error {
			v, err := parse(text)
			if err != nil {
				return err
			}
			return set(v)
		},
	}
}
