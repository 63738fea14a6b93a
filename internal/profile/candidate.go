package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrEmptyID  = errors.New("candidate id is empty")
	ErrNoImages = errors.New("candidate has no images")
)

type Coordinates struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

// Candidate is one profile eligible for a swipe decision.
type Candidate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Age         int          `json:"age,omitempty"`
	Location    string       `json:"location,omitempty"`
	Distance    int          `json:"distance,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	Images      []string     `json:"images"`
	Tags        []string     `json:"tags,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Candidates struct {
	Items []*Candidate
}

// Validate reports whether the candidate can be queued.
func (c *Candidate) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if len(c.Images) == 0 {
		return fmt.Errorf("%s: %w", c.ID, ErrNoImages)
	}
	return nil
}

// Clone returns a deep copy so queued candidates cannot be mutated by the caller.
func (c *Candidate) Clone() Candidate {
	clone := *c
	clone.Images = append([]string(nil), c.Images...)
	clone.Tags = append([]string(nil), c.Tags...)
	if c.Coordinates != nil {
		coords := *c.Coordinates
		clone.Coordinates = &coords
	}
	return clone
}

func (v *Candidates) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

func (v *Candidates) IDs() []string {
	ids := make([]string, 0, v.Len())
	for _, c := range v.Items {
		ids = append(ids, c.ID)
	}
	return ids
}

func (v *Candidates) FindByID(id string) *Candidate {
	for _, c := range v.Items {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Values returns copies of the candidates in order.
func (v *Candidates) Values() []Candidate {
	values := make([]Candidate, 0, v.Len())
	for _, c := range v.Items {
		values = append(values, c.Clone())
	}
	return values
}

// Exclude removes candidates with the given ids, preserving the order of the rest.
// It returns the ids that were actually removed.
func (v *Candidates) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	targets := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, c := range v.Items {
		if _, ok := targets[c.ID]; ok {
			excluded = append(excluded, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	v.Items = kept

	return excluded
}

// ExcludeFunc removes candidates for which drop returns true.
func (v *Candidates) ExcludeFunc(drop func(*Candidate) bool) []string {
	var ids []string
	for _, c := range v.Items {
		if drop(c) {
			ids = append(ids, c.ID)
		}
	}
	return v.Exclude(ids)
}

// ReportByLocation groups candidates by location for a quick overview.
func (v *Candidates) ReportByLocation() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, c := range v.Items {
		key := c.Location
		if key == "" {
			key = "unknown"
		}
		report[key] = append(report[key], map[string]string{
			"id":       c.ID,
			"name":     c.Name,
			"age":      fmt.Sprintf("%d", c.Age),
			"distance": fmt.Sprintf("%d km", c.Distance),
			"images":   fmt.Sprintf("%d", len(c.Images)),
		})
	}

	for key := range report {
		sort.Slice(report[key], func(i, j int) bool {
			return report[key][i]["id"] < report[key][j]["id"]
		})
	}
	return report
}

func (v *Candidates) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
