// Package discovery implements the swipe decision engine: a candidate queue,
// undoable liked/passed histories, a probabilistic match evaluator and a
// per-candidate image carousel, all owned by a single Engine.
package discovery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/logger"
	"github.com/spigell/lovemeet/internal/profile"
)

const (
	upcomingSize = 5
	recentSize   = 5
)

var (
	ErrInvalidCandidate   = errors.New("invalid candidate")
	ErrDuplicateCandidate = errors.New("duplicate candidate id")
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	// Policy defaults to DefaultMatchPolicy when nil.
	Policy *MatchPolicy
	// Rand defaults to a generator seeded from the clock.
	Rand        Rand
	Scheduler   Scheduler
	SettleDelay time.Duration
	Now         func() time.Time
	NewID       func() string
	Logger      *zap.Logger
	// OnSettle receives the outcome of every completed transition. It is
	// called without the engine lock held, possibly from a timer goroutine.
	OnSettle func(Outcome)
}

// Engine is the decision orchestrator. Queue, history and carousel are only
// reachable through its methods; every method is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	queue     *queue
	history   *history
	carousel  carousel
	evaluator *Evaluator

	// transitioning is true between a recorded decision and its queue advance.
	transitioning bool

	scheduler   Scheduler
	settleDelay time.Duration
	logger      *zap.Logger
	onSettle    func(Outcome)
}

// New validates and copies candidates into a fresh engine.
func New(candidates []profile.Candidate, opts Options) (*Engine, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}

	policy := DefaultMatchPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	rng := opts.Rand
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}

	evaluator, err := NewEvaluator(policy, rng)
	if err != nil {
		return nil, err
	}

	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	e := &Engine{
		queue:       newQueue(cloneAll(candidates)),
		history:     newHistory(opts.Now, opts.NewID),
		evaluator:   evaluator,
		scheduler:   opts.Scheduler,
		settleDelay: opts.SettleDelay,
		logger:      logger.ForComponent(opts.Logger, "discovery"),
		onSettle:    opts.OnSettle,
	}
	e.resetCarousel()

	return e, nil
}

// Like records a like for the current candidate and evaluates a match.
func (e *Engine) Like() Outcome {
	return e.decide(Liked, false)
}

// Pass records a pass for the current candidate.
func (e *Engine) Pass() Outcome {
	return e.decide(Passed, false)
}

// SuperLike is a like whose events carry the super flag and whose match
// chance follows MatchPolicy.SuperLikeProbability.
func (e *Engine) SuperLike() Outcome {
	return e.decide(Liked, true)
}

func (e *Engine) decide(kind ActionKind, super bool) Outcome {
	e.mu.Lock()

	if e.transitioning {
		out := e.rejected(ReasonBusy)
		e.mu.Unlock()
		return out
	}

	current, ok := e.queue.current()
	if !ok {
		out := e.rejected(ReasonNoCandidate)
		e.mu.Unlock()
		return out
	}

	// The flag is set in the same critical section as the record, so a second
	// decision can never be taken against the same candidate.
	action := e.history.record(kind, current, super)
	e.transitioning = true

	events := []Event{{Type: EventDecided, Candidate: cloneOf(current), Action: actionCopy(action), Super: super}}
	fields := append(logger.CandidateFields(&current),
		zap.String("action", kind.String()),
		zap.Bool("super", super),
	)

	if kind == Liked {
		result := e.evaluator.Evaluate(&current, super)
		eventType := EventNotMatched
		if result == Match {
			eventType = EventMatched
		}
		events = append(events, Event{Type: eventType, Candidate: cloneOf(current), Super: super})
		fields = append(fields, zap.Stringer("match", result))
	}

	e.logger.Debug("decision recorded", fields...)

	out := Outcome{Snapshot: e.snapshot(), Events: events}
	e.mu.Unlock()

	e.scheduler.AfterFunc(e.settleDelay, e.settle)

	return out
}

// settle completes the transition started by decide.
func (e *Engine) settle() {
	e.mu.Lock()

	e.queue.advance()
	e.resetCarousel()
	e.transitioning = false

	var events []Event
	current, ok := e.queue.current()
	if ok {
		events = append(events, Event{Type: EventAdvanced, Candidate: cloneOf(current)})
		e.logger.Debug("advanced", logger.CandidateFields(&current)...)
	} else {
		events = append(events, Event{Type: EventAdvanced}, Event{Type: EventExhausted})
		e.logger.Debug("queue exhausted")
	}

	out := Outcome{Snapshot: e.snapshot(), Events: events}
	onSettle := e.onSettle
	e.mu.Unlock()

	if onSettle != nil {
		onSettle(out)
	}
}

// Undo reverts the most recent decision and makes its candidate current again.
func (e *Engine) Undo() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transitioning {
		return e.rejected(ReasonBusy)
	}

	action, ok := e.history.undoMostRecent()
	if !ok {
		e.logger.Debug("nothing to undo")
		return Outcome{Snapshot: e.snapshot(), Events: []Event{{Type: EventUndoEmpty}}}
	}

	e.queue.reinsertAtFront(action.Candidate)
	e.resetCarousel()

	e.logger.Debug("undo performed",
		append(logger.CandidateFields(&action.Candidate), zap.String("action", action.Kind.String()))...,
	)

	return Outcome{
		Snapshot: e.snapshot(),
		Events:   []Event{{Type: EventUndoPerformed, Candidate: cloneOf(action.Candidate), Action: actionCopy(action), Super: action.Super}},
	}
}

// NextImage and PrevImage never touch the queue or history, so they are
// served even while a transition is in flight.
func (e *Engine) NextImage() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.carousel.next()
	return Outcome{Snapshot: e.snapshot()}
}

func (e *Engine) PrevImage() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.carousel.prev()
	return Outcome{Snapshot: e.snapshot()}
}

// Refresh re-seeds the queue. History is cleared only when fullReset is set,
// so undo keeps working across refreshes otherwise.
func (e *Engine) Refresh(candidates []profile.Candidate, fullReset bool) (Outcome, error) {
	if err := validateCandidates(candidates); err != nil {
		return Outcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transitioning {
		return e.rejected(ReasonBusy), nil
	}

	e.queue.reset(cloneAll(candidates))
	if fullReset {
		e.history.clear()
	}
	e.resetCarousel()

	e.logger.Debug("queue refreshed",
		zap.Int("candidates", len(candidates)),
		zap.Bool("full_reset", fullReset),
	)

	events := []Event{{Type: EventRefreshed}}
	if _, ok := e.queue.current(); !ok {
		events = append(events, Event{Type: EventExhausted})
	}

	return Outcome{Snapshot: e.snapshot(), Events: events}, nil
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot()
}

// Exhausted reports whether there is no current candidate.
func (e *Engine) Exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.queue.current()
	return !ok
}

func (e *Engine) rejected(reason Reason) Outcome {
	e.logger.Debug("intent rejected", zap.String("reason", string(reason)))

	var candidate *profile.Candidate
	if current, ok := e.queue.current(); ok {
		candidate = cloneOf(current)
	}

	return Outcome{
		Snapshot: e.snapshot(),
		Events:   []Event{{Type: EventRejected, Candidate: candidate, Reason: reason}},
	}
}

func (e *Engine) resetCarousel() {
	if current, ok := e.queue.current(); ok {
		e.carousel.resetFor(&current)
		return
	}
	e.carousel.resetFor(nil)
}

// snapshot must be called with e.mu held.
func (e *Engine) snapshot() Snapshot {
	liked, passed := e.history.counts()
	s := Snapshot{
		Remaining:     e.queue.remainingCount(),
		Liked:         liked,
		Passed:        passed,
		ImageIndex:    e.carousel.index,
		ImageCount:    e.carousel.count,
		Transitioning: e.transitioning,
		Upcoming:      e.queue.upcoming(upcomingSize),
		RecentLiked:   names(recent(e.history.liked, recentSize)),
		RecentPassed:  names(recent(e.history.passed, recentSize)),
	}

	if current, ok := e.queue.current(); ok {
		s.Current = cloneOf(current)
	}

	return s
}

func validateCandidates(candidates []profile.Candidate) error {
	seen := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
		}
		if _, ok := seen[candidates[i].ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCandidate, candidates[i].ID)
		}
		seen[candidates[i].ID] = struct{}{}
	}
	return nil
}

func cloneAll(candidates []profile.Candidate) []profile.Candidate {
	out := make([]profile.Candidate, 0, len(candidates))
	for i := range candidates {
		out = append(out, candidates[i].Clone())
	}
	return out
}

func cloneOf(c profile.Candidate) *profile.Candidate {
	clone := c.Clone()
	return &clone
}

func actionCopy(a Action) *Action {
	a.Candidate = a.Candidate.Clone()
	return &a
}

func names(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Candidate.Name)
	}
	return out
}
