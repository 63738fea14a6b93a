package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/profile"
)

type withoutImagesFilter struct {
	logger *zap.Logger
}

// NewWithoutImages creates a filter that removes candidates the queue would reject.
func NewWithoutImages(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &withoutImagesFilter{logger: logger}
}

func (f *withoutImagesFilter) Name() string { return "without_images" }

func (f *withoutImagesFilter) Disable(string) {}

func (f *withoutImagesFilter) IsEnabled() bool { return true }

func (f *withoutImagesFilter) Validate() error { return nil }

func (f *withoutImagesFilter) Apply(_ context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()
	excluded := c.ExcludeFunc(func(candidate *profile.Candidate) bool {
		return candidate.Validate() != nil
	})

	if len(excluded) > 0 {
		f.logger.Info("excluding candidates without id or images",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, step(initial, c), nil
}
