package profile

import (
	"errors"
	"os"
	"testing"
)

func sampleCandidates() *Candidates {
	return &Candidates{
		Items: []*Candidate{
			{ID: "a", Name: "Ann", Age: 25, Location: "Chicago", Distance: 4, Images: []string{"a1", "a2"}},
			{ID: "b", Name: "Bea", Age: 31, Location: "Dallas", Distance: 12, Images: []string{"b1"}},
			{ID: "c", Name: "Cat", Age: 28, Location: "Chicago", Distance: 40, Images: []string{"c1"}},
		},
	}
}

func TestCandidateValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate Candidate
		want      error
	}{
		{name: "valid", candidate: Candidate{ID: "a", Images: []string{"x"}}},
		{name: "empty id", candidate: Candidate{Images: []string{"x"}}, want: ErrEmptyID},
		{name: "no images", candidate: Candidate{ID: "a"}, want: ErrNoImages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.candidate.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCandidateCloneIsDeep(t *testing.T) {
	original := &Candidate{ID: "a", Images: []string{"a1"}, Tags: []string{"Music"}, Coordinates: &Coordinates{Lat: 1, Lng: 2}}
	clone := original.Clone()

	original.Images[0] = "changed"
	original.Tags[0] = "changed"
	original.Coordinates.Lat = 99

	if clone.Images[0] != "a1" || clone.Tags[0] != "Music" || clone.Coordinates.Lat != 1 {
		t.Fatalf("clone shares state with original: %+v", clone)
	}
}

func TestExcludePreservesOrder(t *testing.T) {
	candidates := sampleCandidates()

	removed := candidates.Exclude([]string{"b", "missing"})
	if len(removed) != 1 || removed[0] != "b" {
		t.Fatalf("unexpected removed ids: %v", removed)
	}

	ids := candidates.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected remaining ids: %v", ids)
	}

	if removed := candidates.Exclude(nil); removed != nil {
		t.Fatalf("expected nothing removed, got %v", removed)
	}
}

func TestExcludeFunc(t *testing.T) {
	candidates := sampleCandidates()

	removed := candidates.ExcludeFunc(func(c *Candidate) bool { return c.Age > 26 })
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", removed)
	}
	if candidates.Len() != 1 || candidates.Items[0].ID != "a" {
		t.Fatalf("unexpected remaining candidates: %v", candidates.IDs())
	}
}

func TestFindByID(t *testing.T) {
	candidates := sampleCandidates()

	if c := candidates.FindByID("c"); c == nil || c.Name != "Cat" {
		t.Fatalf("expected to find Cat, got %+v", c)
	}
	if c := candidates.FindByID("zzz"); c != nil {
		t.Fatalf("expected nil, got %+v", c)
	}
}

func TestReportByLocation(t *testing.T) {
	report := sampleCandidates().ReportByLocation()

	chicago := report["Chicago"]
	if len(chicago) != 2 {
		t.Fatalf("expected 2 entries for Chicago, got %d", len(chicago))
	}
	if chicago[0]["id"] != "a" || chicago[1]["id"] != "c" {
		t.Fatalf("entries are not sorted by id: %v", chicago)
	}
	if chicago[0]["distance"] != "4 km" {
		t.Fatalf("unexpected distance: %q", chicago[0]["distance"])
	}
	if chicago[0]["images"] != "2" {
		t.Fatalf("unexpected images count: %q", chicago[0]["images"])
	}
}

func TestDumpToTmpFile(t *testing.T) {
	name, err := sampleCandidates().DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(name)

	loaded, err := NewFileSource(name).Candidates(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 candidates, got %d", loaded.Len())
	}
}
