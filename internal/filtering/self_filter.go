package filtering

import (
	"context"
	"strings"

	"github.com/spigell/lovemeet/internal/profile"
)

type selfFilter struct {
	viewerID string
}

// NewSelf creates a filter that removes the viewer's own profile.
func NewSelf(viewerID string) Filter {
	return &selfFilter{viewerID: strings.TrimSpace(viewerID)}
}

func (f *selfFilter) Name() string { return "self" }

func (f *selfFilter) Disable(string) {}

func (f *selfFilter) IsEnabled() bool { return true }

func (f *selfFilter) Validate() error { return nil }

func (f *selfFilter) Apply(_ context.Context, c *profile.Candidates) (*profile.Candidates, Step, error) {
	initial := c.Len()
	if f.viewerID != "" {
		c.Exclude([]string{f.viewerID})
	}
	return c, step(initial, c), nil
}
