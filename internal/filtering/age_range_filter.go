package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/profile"
)

// AgeRangeConfig bounds candidate age. A zero bound is open.
type AgeRangeConfig struct {
	Min int
	Max int
}

type ageRangeFilter struct {
	config AgeRangeConfig
	logger *zap.Logger
}

func NewAgeRange(cfg AgeRangeConfig, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ageRangeFilter{config: cfg, logger: logger}
}

func (f *ageRangeFilter) Name() string { return "age_range" }

func (f *ageRangeFilter) Disable(string) {}

func (f *ageRangeFilter) IsEnabled() bool { return true }

func (f *ageRangeFilter) Validate() error {
	if f.config.Min < 0 || f.config.Max < 0 {
		return fmt.Errorf("age bounds must not be negative")
	}
	if f.config.Max > 0 && f.config.Min > f.config.Max {
		return fmt.Errorf("minimum age %d is greater than maximum age %d", f.config.Min, f.config.Max)
	}
	return nil
}

func (f *ageRangeFilter) Apply(_ context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()
	if f.config.Min == 0 && f.config.Max == 0 {
		return c, step(initial, c), nil
	}

	excluded := c.ExcludeFunc(func(candidate *profile.Candidate) bool {
		// Unknown age is kept.
		if candidate.Age == 0 {
			return false
		}
		if f.config.Min > 0 && candidate.Age < f.config.Min {
			return true
		}
		return f.config.Max > 0 && candidate.Age > f.config.Max
	})

	if len(excluded) > 0 {
		f.logger.Info("excluding candidates outside of the age range",
			zap.Int("age_min", f.config.Min),
			zap.Int("age_max", f.config.Max),
			zap.Strings("excluded_candidates", excluded),
		)
	}

	return c, step(initial, c), nil
}

func (f *ageRangeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{
			"min": strconv.Itoa(f.config.Min),
			"max": strconv.Itoa(f.config.Max),
		},
	}
}
