package ai

import (
	"context"

	"github.com/spigell/lovemeet/internal/profile"
)

// FitAssessment is the verdict of a compatibility model on one candidate.
type FitAssessment struct {
	Fit    bool
	Score  float64
	Reason string
	// Opener is a suggested first message.
	Opener string
	Raw    string
}

type Matcher interface {
	Evaluate(ctx context.Context, viewer, candidate *profile.Candidate) (*FitAssessment, error)
}
