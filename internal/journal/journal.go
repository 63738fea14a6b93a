// Package journal persists swipe decisions across sessions.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindLiked  = "liked"
	KindPassed = "passed"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

var (
	ErrUnknownDriver = errors.New("unknown journal driver")
	ErrEmptyActionID = errors.New("journal entry has no action id")
)

// Entry is one recorded decision.
type Entry struct {
	ActionID      string    `json:"action_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	Kind          string    `json:"kind"`
	Super         bool      `json:"super,omitempty"`
	Matched       bool      `json:"matched,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
}

type Journal interface {
	Record(ctx context.Context, entry Entry) error
	// Remove deletes the entry of an undone action. Unknown ids are ignored.
	Remove(ctx context.Context, actionID string) error
	// Entries returns all entries ordered by decision time.
	Entries(ctx context.Context) ([]Entry, error)
	DecidedIDs(ctx context.Context) (map[string]struct{}, error)
	Close() error
}

// Stats summarizes a list of entries.
type Stats struct {
	Liked   int
	Passed  int
	Super   int
	Matched int
}

func Summarize(entries []Entry) Stats {
	var s Stats
	for _, e := range entries {
		switch e.Kind {
		case KindLiked:
			s.Liked++
		case KindPassed:
			s.Passed++
		}
		if e.Super {
			s.Super++
		}
		if e.Matched {
			s.Matched++
		}
	}
	return s
}

// Open returns the journal backend for driver. An empty path keeps the
// journal in memory for the sqlite driver and is an error for the file driver.
func Open(driver, path string) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverFile, "":
		return OpenFile(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validate(entry Entry) error {
	if strings.TrimSpace(entry.ActionID) == "" {
		return ErrEmptyActionID
	}
	return nil
}

func decidedIDs(entries []Entry) map[string]struct{} {
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		ids[e.CandidateID] = struct{}{}
	}
	return ids
}
