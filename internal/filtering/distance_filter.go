package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/profile"
)

type distanceFilter struct {
	maxKm  int
	logger *zap.Logger
}

// NewDistance creates a filter that removes candidates farther than maxKm.
// Zero disables the limit; candidates with unknown distance are kept.
func NewDistance(maxKm int, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &distanceFilter{maxKm: maxKm, logger: logger}
}

func (f *distanceFilter) Name() string { return "distance" }

func (f *distanceFilter) Disable(string) {}

func (f *distanceFilter) IsEnabled() bool { return true }

func (f *distanceFilter) Validate() error {
	if f.maxKm < 0 {
		return fmt.Errorf("max distance must not be negative, got %d", f.maxKm)
	}
	return nil
}

func (f *distanceFilter) Apply(_ context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()
	if f.maxKm == 0 {
		return c, step(initial, c), nil
	}

	excluded := c.ExcludeFunc(func(candidate *profile.Candidate) bool {
		return candidate.Distance > f.maxKm
	})

	if len(excluded) > 0 {
		f.logger.Info("excluding distant candidates",
			zap.Int("max_distance_km", f.maxKm),
			zap.Strings("excluded_candidates", excluded),
		)
	}

	return c, step(initial, c), nil
}

func (f *distanceFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"max_km": strconv.Itoa(f.maxKm)},
	}
}
