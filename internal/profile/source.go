package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
)

// Source yields the ordered candidates a discovery session is seeded with.
type Source interface {
	Candidates(ctx context.Context) (*Candidates, error)
}

// FileSource reads candidates from a JSON file. Both a bare array and an
// object with a "candidates" key are accepted.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Candidates(_ context.Context) (*Candidates, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Candidates{}, nil
	}

	var items []*Candidate
	if data[0] == '[' {
		err = json.Unmarshal(data, &items)
	} else {
		var wrapped struct {
			Candidates []*Candidate `json:"candidates"`
		}
		err = json.Unmarshal(data, &wrapped)
		items = wrapped.Candidates
	}
	if err != nil {
		return nil, fmt.Errorf("decoding candidates file %q: %w", s.Path, err)
	}

	return &Candidates{Items: items}, nil
}

var (
	demoNames     = []string{"Emma", "Sophia", "Olivia", "Isabella", "Ava", "Mia", "Charlotte", "Amelia", "Harper", "Evelyn"}
	demoHobbies   = []string{"Travel", "Photography", "Music", "Cooking", "Reading", "Fitness", "Art", "Dancing", "Movies", "Gaming"}
	demoLocations = []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix", "Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose"}
)

const demoBio = "Love exploring new places and trying new cuisines. Looking for someone to share adventures with!"

// DemoSource generates a fixed-size deck of sample candidates. The same seed
// always produces the same deck.
type DemoSource struct {
	Seed uint64
}

func NewDemoSource(seed uint64) *DemoSource {
	return &DemoSource{Seed: seed}
}

func (s *DemoSource) Candidates(_ context.Context) (*Candidates, error) {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x5eed))

	items := make([]*Candidate, 0, len(demoNames))
	for idx, name := range demoNames {
		items = append(items, &Candidate{
			ID:       fmt.Sprintf("profile-%d", idx),
			Name:     name,
			Age:      22 + rng.IntN(10),
			Location: demoLocations[idx],
			Distance: rng.IntN(50) + 1,
			Bio:      demoBio,
			Images: []string{
				fmt.Sprintf("https://i.pravatar.cc/400?img=%d", idx+1),
				fmt.Sprintf("https://i.pravatar.cc/400?img=%d", idx+11),
				fmt.Sprintf("https://i.pravatar.cc/400?img=%d", idx+21),
			},
			Tags: append([]string(nil), demoHobbies[:3+rng.IntN(3)]...),
		})
	}

	return &Candidates{Items: items}, nil
}
