package incremental

import (
	"fmt"

	"structsearch/internal/search"
)

const (
	DefaultMinimumOrder                  = 1
	DefaultMaximumOrder                  = 10
	DefaultStep                          = 1
	DefaultMaximumGeneralizationFailures = 10
)

// Settings configures an order selection run on top of the shared
// search.Settings.
type Settings struct {
	search.Settings

	minimumOrder                  int
	maximumOrder                  int
	step                          int
	maximumGeneralizationFailures int
}

func NewSettings() Settings {
	var s Settings
	s.SetDefault()
	return s
}

func (s *Settings) SetDefault() {
	s.Settings.SetDefault()
	s.minimumOrder = DefaultMinimumOrder
	s.maximumOrder = DefaultMaximumOrder
	s.step = DefaultStep
	s.maximumGeneralizationFailures = DefaultMaximumGeneralizationFailures
}

func (s Settings) MinimumOrder() int { return s.minimumOrder }
func (s Settings) MaximumOrder() int { return s.maximumOrder }
func (s Settings) Step() int { return s.step }

func (s Settings) MaximumGeneralizationFailures() int {
	return s.maximumGeneralizationFailures
}

func (s *Settings) SetMinimumOrder(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: minimum order must be > 0, got %d", search.ErrInvalidSetting, n)
	}
	if n > s.maximumOrder {
		return fmt.Errorf("%w: minimum order %d is above maximum order %d", search.ErrInvalidSetting, n, s.maximumOrder)
	}
	s.minimumOrder = n
	return nil
}

func (s *Settings) SetMaximumOrder(n int) error {
	if n < s.minimumOrder {
		return fmt.Errorf("%w: maximum order %d is below minimum order %d", search.ErrInvalidSetting, n, s.minimumOrder)
	}
	s.maximumOrder = n
	return nil
}

// SetStep sets the order increment. It must fit in the order range unless
// the range is a single order.
func (s *Settings) SetStep(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: step must be > 0, got %d", search.ErrInvalidSetting, n)
	}
	if span := s.maximumOrder - s.minimumOrder; span > 0 && n > span {
		return fmt.Errorf("%w: step %d is larger than the order range %d", search.ErrInvalidSetting, n, span)
	}
	s.step = n
	return nil
}

func (s *Settings) SetMaximumGeneralizationFailures(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: maximum generalization failures must be > 0, got %d", search.ErrInvalidSetting, n)
	}
	s.maximumGeneralizationFailures = n
	return nil
}

// validate rechecks the cross-field constraints that independent setters
// cannot enforce, such as a range narrowed after the step was set.
func (s Settings) validate() error {
	if s.minimumOrder <= 0 || s.maximumOrder < s.minimumOrder {
		return fmt.Errorf("%w: order range [%d, %d]", search.ErrInvalidSetting, s.minimumOrder, s.maximumOrder)
	}
	if s.step <= 0 {
		return fmt.Errorf("%w: step must be > 0, got %d", search.ErrInvalidSetting, s.step)
	}
	if span := s.maximumOrder - s.minimumOrder; span > 0 && s.step > span {
		return fmt.Errorf("%w: step %d is larger than the order range %d", search.ErrInvalidSetting, s.step, span)
	}
	return nil
}
