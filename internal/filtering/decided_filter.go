package filtering

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/journal"
	"github.com/spigell/lovemeet/internal/profile"
)

const forceFlagSetMsg = "force flag is set"

type decidedFilter struct {
	journal journal.Journal
	logger  *zap.Logger
	ignore  bool
	reason  string
}

type DecidedConfig struct {
	// Ignore keeps candidates that were decided in earlier sessions.
	Ignore bool
}

// NewDecided creates a filter that removes candidates found in the decision journal.
func NewDecided(cfg *DecidedConfig, j journal.Journal, logger *zap.Logger) Filter {
	f := &decidedFilter{journal: j, logger: logger}
	if cfg != nil && cfg.Ignore {
		f.ignore = true
		f.reason = forceFlagSetMsg
	}
	return f
}

func (f *decidedFilter) Name() string { return "decided" }

func (f *decidedFilter) Disable(reason string) {
	f.ignore = true
	f.reason = reason
}

func (f *decidedFilter) IsEnabled() bool { return !f.ignore }

func (f *decidedFilter) Validate() error {
	if f.journal == nil {
		return fmt.Errorf("decision journal is required")
	}
	if f.logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

func (f *decidedFilter) Apply(ctx context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()

	decided, err := f.journal.DecidedIDs(ctx)
	if err != nil {
		return c, Step{}, fmt.Errorf("get decided candidates: %w", err)
	}

	ids := slices.Sorted(maps.Keys(decided))
	excluded := c.Exclude(ids)
	if len(excluded) > 0 {
		f.logger.Info("excluding candidates decided in earlier sessions",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, step(initial, c), nil
}

func (f *decidedFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
