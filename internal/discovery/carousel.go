package discovery

import "github.com/spigell/lovemeet/internal/profile"

// carousel is the image index of the current candidate.
type carousel struct {
	index int
	count int
}

func (c *carousel) next() bool {
	if c.index >= c.count-1 {
		return false
	}
	c.index++
	return true
}

func (c *carousel) prev() bool {
	if c.index <= 0 {
		return false
	}
	c.index--
	return true
}

// resetFor points the carousel at the first image of candidate. A nil
// candidate leaves an empty carousel.
func (c *carousel) resetFor(candidate *profile.Candidate) {
	c.index = 0
	c.count = 0
	if candidate != nil {
		c.count = len(candidate.Images)
	}
}
