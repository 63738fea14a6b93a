package discovery

import (
	"fmt"
	"sync"
	"time"

	"github.com/spigell/lovemeet/internal/profile"
)

// manualScheduler queues callbacks until Fire is called.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
	s.delays = append(s.delays, d)
}

func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, f := range pending {
		f()
	}
	return len(pending)
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// fixedRand always returns the same draw.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// sequenceRand returns its values in order and then repeats the last one.
type sequenceRand struct {
	values []float64
	i      int
}

func (r *sequenceRand) Float64() float64 {
	v := r.values[min(r.i, len(r.values)-1)]
	r.i++
	return v
}

// stepClock advances one second per call.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func candidate(id string, images int) profile.Candidate {
	c := profile.Candidate{ID: id, Name: "Name " + id}
	for i := range images {
		c.Images = append(c.Images, fmt.Sprintf("https://img.example/%s/%d.jpg", id, i))
	}
	return c
}

func candidates(ids ...string) []profile.Candidate {
	out := make([]profile.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, candidate(id, 3))
	}
	return out
}

func ids(values []profile.Candidate) []string {
	out := make([]string, 0, len(values))
	for _, c := range values {
		out = append(out, c.ID)
	}
	return out
}

func currentID(s Snapshot) string {
	if s.Current == nil {
		return ""
	}
	return s.Current.ID
}
