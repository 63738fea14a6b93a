package filtering

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/ai"
	"github.com/spigell/lovemeet/internal/logger"
	"github.com/spigell/lovemeet/internal/profile"
)

// AIFitName is the name the AI compatibility step reports.
const AIFitName = "ai_fit"

type aiFitFilter struct {
	enabled     bool
	reason      string
	config      *AIFitFilterConfig
	deps        *AIFitFilterDeps
	assessments map[string]*ai.FitAssessment
}

type AIFitFilterDeps struct {
	Logger  *zap.Logger
	Matcher ai.Matcher
	Viewer  *profile.Candidate
}

type AIFitFilterConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
	Gemini          *AIGeminiConfig
}

type AIGeminiConfig struct {
	Model        string
	MaxRetries   int
	MaxLogLength int
}

// NewAIFit creates the AI-based compatibility step.
func NewAIFit(cfg *AIFitFilterConfig, deps *AIFitFilterDeps) Filter {
	if cfg == nil {
		cfg = &AIFitFilterConfig{}
	}
	return &aiFitFilter{
		enabled: cfg.Enabled,
		deps:    deps,
		config:  cfg,
	}
}

func (f *aiFitFilter) Name() string { return AIFitName }

func (f *aiFitFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return f.enabled }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil || f.deps.Matcher == nil {
		return fmt.Errorf("deps are not initialized: filter is not usable")
	}
	if f.deps.Viewer == nil {
		return fmt.Errorf("viewer profile is required for AI evaluation")
	}
	if f.config.Gemini == nil {
		return fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}
	if strings.TrimSpace(f.config.Gemini.Model) == "" {
		return fmt.Errorf("gemini model is required when ai filter is enabled")
	}
	return nil
}

// Apply keeps candidates the matcher approves. Candidates whose evaluation
// fails are kept so an unreachable provider never empties the deck.
func (f *aiFitFilter) Apply(ctx context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()
	log := f.deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	approved := make([]*profile.Candidate, 0, initial)
	f.assessments = make(map[string]*ai.FitAssessment, initial)

	for _, candidate := range c.Items {
		fields := logger.CandidateFields(candidate)

		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Viewer, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return c, Step{}, ctx.Err()
			}
			log.Warn("AI evaluation failed", append(fields, zap.Error(err))...)
			approved = append(approved, candidate)
			continue
		}

		f.assessments[candidate.ID] = assessment

		if !assessment.Fit {
			log.Info("candidate rejected by AI provider",
				append(fields, zap.Float64("ai_score", assessment.Score), zap.String("reason", assessment.Reason))...,
			)
			continue
		}

		log.Info("candidate approved by AI", append(fields, zap.Float64("ai_score", assessment.Score))...)
		approved = append(approved, candidate)
	}

	c.Items = approved

	log.Info("AI filtering completed",
		zap.Int("initial_candidates", initial),
		zap.Int("approved_candidates", len(approved)),
	)

	return c, step(initial, c), nil
}

// Assessments returns the verdicts of the last Apply by candidate id.
func (f *aiFitFilter) Assessments() map[string]*ai.FitAssessment {
	out := make(map[string]*ai.FitAssessment, len(f.assessments))
	maps.Copy(out, f.assessments)
	return out
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["minimum_fit_score"] = fmt.Sprintf("%.2f", f.config.MinimumFitScore)
		if f.config.Gemini != nil {
			details["model"] = f.config.Gemini.Model
			details["max_retries"] = strconv.Itoa(f.config.Gemini.MaxRetries)
			details["max_log_length"] = strconv.Itoa(f.config.Gemini.MaxLogLength)
		}
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
