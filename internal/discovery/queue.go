package discovery

import "github.com/spigell/lovemeet/internal/profile"

// queue is the ordered candidate sequence plus the cursor of the current one.
// The cursor is always a valid index or equal to len(items), meaning exhausted.
// Items before the cursor are decided and never offered again except via undo.
type queue struct {
	items  []profile.Candidate
	cursor int
}

func newQueue(items []profile.Candidate) *queue {
	q := &queue{}
	q.reset(items)
	return q
}

func (q *queue) current() (profile.Candidate, bool) {
	if q.cursor >= len(q.items) {
		return profile.Candidate{}, false
	}
	return q.items[q.cursor], true
}

// remainingCount is the number of candidates strictly after the current one.
func (q *queue) remainingCount() int {
	remaining := len(q.items) - q.cursor - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}

// advance moves the cursor past the current candidate. It returns false when
// the queue was already exhausted.
func (q *queue) advance() bool {
	if q.cursor >= len(q.items) {
		return false
	}
	q.cursor++
	return true
}

// reinsertAtFront makes candidate current again. Already decided items are
// dropped so the undone candidate is followed by the undecided tail.
func (q *queue) reinsertAtFront(candidate profile.Candidate) {
	rest := q.items[q.cursor:]
	items := make([]profile.Candidate, 0, len(rest)+1)
	items = append(items, candidate)
	for _, c := range rest {
		if c.ID == candidate.ID {
			continue
		}
		items = append(items, c)
	}

	q.items = items
	q.cursor = 0
}

func (q *queue) reset(items []profile.Candidate) {
	q.items = append([]profile.Candidate(nil), items...)
	q.cursor = 0
}

// upcoming returns ids of at most n candidates after the current one.
func (q *queue) upcoming(n int) []string {
	if q.cursor+1 >= len(q.items) || n <= 0 {
		return nil
	}

	end := min(q.cursor+1+n, len(q.items))
	ids := make([]string, 0, end-q.cursor-1)
	for _, c := range q.items[q.cursor+1 : end] {
		ids = append(ids, c.ID)
	}
	return ids
}
