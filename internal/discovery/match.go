package discovery

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spigell/lovemeet/internal/profile"
)

// DefaultMatchProbability is the chance that a like turns into a match.
const DefaultMatchProbability = 0.10

var ErrInvalidProbability = errors.New("probability must be within [0, 1]")

// Rand is the randomness the match evaluator draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded generator so match outcomes are reproducible.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// MatchPolicy configures the match evaluator. Super likes use their own
// probability; the default keeps it equal to a plain like.
type MatchPolicy struct {
	Probability          float64
	SuperLikeProbability float64
}

// DefaultMatchPolicy treats a super like the same as a plain like.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		Probability:          DefaultMatchProbability,
		SuperLikeProbability: DefaultMatchProbability,
	}
}

func (p MatchPolicy) Validate() error {
	if p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("match probability %v: %w", p.Probability, ErrInvalidProbability)
	}
	if p.SuperLikeProbability < 0 || p.SuperLikeProbability > 1 {
		return fmt.Errorf("super like probability %v: %w", p.SuperLikeProbability, ErrInvalidProbability)
	}
	return nil
}

// MatchResult is the outcome of a single like.
type MatchResult int

const (
	NoMatch MatchResult = iota
	Match
)

func (r MatchResult) String() string {
	if r == Match {
		return "match"
	}
	return "no match"
}

// Evaluator decides whether a like became a mutual match.
type Evaluator struct {
	policy MatchPolicy
	rng    Rand
}

// NewEvaluator validates policy and binds it to rng.
func NewEvaluator(policy MatchPolicy, rng Rand) (*Evaluator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("match evaluator requires a randomness source")
	}
	return &Evaluator{policy: policy, rng: rng}, nil
}

// Evaluate draws once from the generator for a like of candidate. The
// current policy does not look at the candidate.
func (e *Evaluator) Evaluate(_ *profile.Candidate, super bool) MatchResult {
	p := e.policy.Probability
	if super {
		p = e.policy.SuperLikeProbability
	}

	if e.rng.Float64() < p {
		return Match
	}
	return NoMatch
}
