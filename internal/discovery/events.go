package discovery

import "github.com/spigell/lovemeet/internal/profile"

type EventType int

const (
	EventDecided EventType = iota + 1
	EventMatched
	EventNotMatched
	EventAdvanced
	EventExhausted
	EventUndoPerformed
	EventUndoEmpty
	EventRejected
	EventRefreshed
)

func (t EventType) String() string {
	switch t {
	case EventDecided:
		return "decided"
	case EventMatched:
		return "matched"
	case EventNotMatched:
		return "not_matched"
	case EventAdvanced:
		return "advanced"
	case EventExhausted:
		return "exhausted"
	case EventUndoPerformed:
		return "undo_performed"
	case EventUndoEmpty:
		return "undo_empty"
	case EventRejected:
		return "rejected"
	case EventRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// Reason explains a rejected intent.
type Reason string

const (
	ReasonBusy        Reason = "busy"
	ReasonNoCandidate Reason = "no current candidate"
)

type Event struct {
	Type      EventType
	Candidate *profile.Candidate
	// Action is set for decided and undo events.
	Action *Action
	Super  bool
	Reason Reason
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Current       *profile.Candidate
	Remaining     int
	Liked         int
	Passed        int
	ImageIndex    int
	ImageCount    int
	Transitioning bool
	// Upcoming holds ids of the next few candidates.
	Upcoming []string
	// RecentLiked and RecentPassed hold candidate names, most recent first.
	RecentLiked  []string
	RecentPassed []string
}

func (s Snapshot) Exhausted() bool {
	return s.Current == nil
}

// CurrentImage returns the image reference under the carousel, or "" when exhausted.
func (s Snapshot) CurrentImage() string {
	if s.Current == nil || s.ImageIndex >= len(s.Current.Images) {
		return ""
	}
	return s.Current.Images[s.ImageIndex]
}

// Outcome is what every engine operation reports back.
type Outcome struct {
	Snapshot Snapshot
	Events   []Event
}

func (o Outcome) Has(t EventType) bool {
	return o.Find(t) != nil
}

// Find returns the first event of type t.
func (o Outcome) Find(t EventType) *Event {
	for i := range o.Events {
		if o.Events[i].Type == t {
			return &o.Events[i]
		}
	}
	return nil
}
