package discovery

import (
	"time"

	"github.com/spigell/lovemeet/internal/profile"
)

type ActionKind int

const (
	Liked ActionKind = iota + 1
	Passed
)

func (k ActionKind) String() string {
	switch k {
	case Liked:
		return "liked"
	case Passed:
		return "passed"
	default:
		return "unknown"
	}
}

// Action is a recorded, reversible decision. It lives in exactly one stack
// until it is undone.
type Action struct {
	ID        string
	Kind      ActionKind
	Candidate profile.Candidate
	Super     bool
	Timestamp time.Time
}

// history keeps the liked and passed stacks. The top of each stack is the
// last element of its slice.
type history struct {
	liked  []Action
	passed []Action

	now   func() time.Time
	newID func() string
}

func newHistory(now func() time.Time, newID func() string) *history {
	return &history{now: now, newID: newID}
}

func (h *history) record(kind ActionKind, candidate profile.Candidate, super bool) Action {
	action := Action{
		ID:        h.newID(),
		Kind:      kind,
		Candidate: candidate,
		Super:     super,
		Timestamp: h.now(),
	}

	if kind == Liked {
		h.liked = append(h.liked, action)
	} else {
		h.passed = append(h.passed, action)
	}

	return action
}

// undoMostRecent pops the latest action across both stacks. On equal
// timestamps the liked stack wins.
func (h *history) undoMostRecent() (Action, bool) {
	likedTop, hasLiked := top(h.liked)
	passedTop, hasPassed := top(h.passed)

	switch {
	case hasLiked && (!hasPassed || !passedTop.Timestamp.After(likedTop.Timestamp)):
		h.liked = h.liked[:len(h.liked)-1]
		return likedTop, true
	case hasPassed:
		h.passed = h.passed[:len(h.passed)-1]
		return passedTop, true
	default:
		return Action{}, false
	}
}

func (h *history) counts() (int, int) {
	return len(h.liked), len(h.passed)
}

func (h *history) clear() {
	h.liked = nil
	h.passed = nil
}

// recent returns up to n actions of the stack, most recent first.
func recent(stack []Action, n int) []Action {
	out := make([]Action, 0, min(n, len(stack)))
	for i := len(stack) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, stack[i])
	}
	return out
}

func top(stack []Action) (Action, bool) {
	if len(stack) == 0 {
		return Action{}, false
	}
	return stack[len(stack)-1], true
}
