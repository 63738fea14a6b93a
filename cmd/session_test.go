package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/lovemeet/internal/discovery"
	"github.com/spigell/lovemeet/internal/filtering"
	"github.com/spigell/lovemeet/internal/journal"
	"github.com/spigell/lovemeet/internal/profile"
)

type scriptedPrompt struct {
	actions []string
	menus   [][]string
}

func (p *scriptedPrompt) next(_ string, items []string) (string, error) {
	p.menus = append(p.menus, items)
	if len(p.actions) == 0 {
		return "", errors.New("script exhausted")
	}
	action := p.actions[0]
	p.actions = p.actions[1:]
	return action, nil
}

func newTestSession(t *testing.T, actions ...string) (*session, *scriptedPrompt, journal.Journal, *observer.ObservedLogs) {
	t.Helper()

	core, observed := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	j, err := journal.Open(journal.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	source := profile.NewDemoSource(1)
	filters := filtering.New([]filtering.Filter{filtering.NewWithoutImages(log)}, log)

	deck, err := loadDeck(context.Background(), source, filters, log)
	if err != nil {
		t.Fatalf("load deck: %v", err)
	}
	deck.Items = deck.Items[:2]

	settled := make(chan discovery.Outcome, 1)
	never := discovery.MatchPolicy{}

	engine, err := discovery.New(deck.Values(), discovery.Options{
		Policy:      &never,
		SettleDelay: time.Millisecond,
		Logger:      log,
		OnSettle:    func(out discovery.Outcome) { settled <- out },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	prompt := &scriptedPrompt{actions: actions}
	s := &session{
		engine:  engine,
		journal: j,
		source:  source,
		filters: filters,
		deck:    deck,
		settled: settled,
		logger:  log,
		prompt:  prompt.next,
	}

	return s, prompt, j, observed
}

func TestSessionMirrorsDecisionsToJournal(t *testing.T) {
	s, prompt, j, observed := newTestSession(t, PromptLike, PromptSuperLike, PromptUndo, PromptQuit)

	if err := s.loop(context.Background()); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}

	entries, err := j.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}

	if len(entries) != 1 || entries[0].Kind != journal.KindLiked || entries[0].Super || entries[0].Matched {
		t.Fatalf("expected the plain like to remain after undo, got %+v", entries)
	}

	if observed.FilterMessage("decision undone").Len() != 1 {
		t.Fatalf("expected undo to be logged")
	}

	// The super like exhausted the two-profile deck.
	if got := prompt.menus[2]; !slices.Equal(got, []string{PromptUndo, PromptRefresh, PromptQuit}) {
		t.Fatalf("expected exhausted menu, got %v", got)
	}
}

func TestSessionRefreshAfterExhaustion(t *testing.T) {
	s, _, _, observed := newTestSession(t, PromptPass, PromptPass, PromptRefresh, PromptQuit)

	if err := s.loop(context.Background()); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}

	if observed.FilterMessage("profiles refreshed").Len() != 1 {
		t.Fatalf("expected refresh to be logged")
	}

	snapshot := s.engine.Snapshot()
	if snapshot.Exhausted() || snapshot.Passed != 2 {
		t.Fatalf("expected a fresh deck with history kept, got %+v", snapshot)
	}
	if s.deck.Len() != 10 {
		t.Fatalf("expected the full demo deck after refresh, got %d", s.deck.Len())
	}
}

func TestSessionStopsOnPromptError(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	if err := s.loop(context.Background()); err == nil || errors.Is(err, errExit) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestMenu(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		snapshot discovery.Snapshot
		want     []string
	}{
		{
			name:     "exhausted",
			snapshot: discovery.Snapshot{},
			want:     []string{PromptUndo, PromptRefresh, PromptQuit},
		},
		{
			name:     "first image",
			snapshot: discovery.Snapshot{Current: &profile.Candidate{ID: "a"}, ImageCount: 3},
			want: []string{PromptLike, PromptPass, PromptSuperLike, PromptUndo, PromptNextImage,
				PromptReportByLocation, PromptCandidatesToFile, PromptRefresh, PromptQuit},
		},
		{
			name:     "last image",
			snapshot: discovery.Snapshot{Current: &profile.Candidate{ID: "a"}, ImageCount: 3, ImageIndex: 2},
			want: []string{PromptLike, PromptPass, PromptSuperLike, PromptUndo, PromptPrevImage,
				PromptReportByLocation, PromptCandidatesToFile, PromptRefresh, PromptQuit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := menu(tt.snapshot); !slices.Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

const testConfig = `
viewer:
  id: me
  name: Alex
  location:
    lat: 40.7
    lng: -74.0
  preferences:
    age-min: 24
    max-distance: 30
source:
  kind: file
  file: deck.json
discovery:
  match-probability: 0.2
  settle-delay: 250ms
journal:
  driver: sqlite
`

func readTestConfig(t *testing.T, raw string) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(raw)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return config
}

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	config := readTestConfig(t, testConfig)

	if config.Viewer.ID != "me" || config.Viewer.Location == nil || config.Viewer.Location.Lat != 40.7 {
		t.Fatalf("unexpected viewer: %+v", config.Viewer)
	}
	if config.Viewer.Preferences.AgeMin != 24 || config.Viewer.Preferences.MaxDistance != 30 {
		t.Fatalf("unexpected preferences: %+v", config.Viewer.Preferences)
	}
	if config.Discovery.SettleDelay != 250*time.Millisecond {
		t.Fatalf("expected settle delay 250ms, got %s", config.Discovery.SettleDelay)
	}
	if config.Journal.Driver != journal.DriverSQLite || !config.Journal.ExcludeDecided {
		t.Fatalf("unexpected journal config: %+v", config.Journal)
	}
	if config.Source.API.PageSize != 20 {
		t.Fatalf("expected default page size, got %d", config.Source.API.PageSize)
	}

	policy := config.Discovery.matchPolicy()
	if policy.Probability != 0.2 || policy.SuperLikeProbability != 0.2 {
		t.Fatalf("expected super like probability to follow the match probability, got %+v", policy)
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Parallel()

	config := readTestConfig(t, "discovery:\n  super-like-probability: 0.5\n")

	policy := config.Discovery.matchPolicy()
	if policy.Probability != discovery.DefaultMatchProbability || policy.SuperLikeProbability != 0.5 {
		t.Fatalf("unexpected policy: %+v", policy)
	}
	if config.Discovery.SettleDelay != discovery.DefaultSettleDelay {
		t.Fatalf("expected default settle delay, got %s", config.Discovery.SettleDelay)
	}
	if config.Source.Kind != sourceDemo {
		t.Fatalf("expected demo source by default, got %q", config.Source.Kind)
	}
}

func TestBuildSource(t *testing.T) {
	t.Setenv(envAPITokenFile, "")

	tokenFile := filepath.Join(t.TempDir(), "token")
	writeFile(t, tokenFile, "secret-token\n")

	tests := []struct {
		name    string
		config  string
		demo    bool
		want    string
		wantErr bool
	}{
		{name: "demo by default", config: "{}", want: "*profile.DemoSource"},
		{name: "file", config: "source:\n  file: deck.json\n", want: "*profile.FileSource"},
		{name: "demo flag wins", config: "source:\n  file: deck.json\n", demo: true, want: "*profile.DemoSource"},
		{name: "api", config: "source:\n  kind: api\n  api:\n    url: http://localhost:3000/\n    token-file: " + tokenFile + "\n", want: "*profile.Client"},
		{name: "api without url", config: "source:\n  kind: api\n", wantErr: true},
		{name: "api without token", config: "source:\n  kind: api\n  api:\n    url: http://localhost\n", wantErr: true},
		{name: "file without path", config: "source:\n  kind: file\n", wantErr: true},
		{name: "unknown", config: "source:\n  kind: carrier-pigeon\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := readTestConfig(t, tt.config)

			source, err := buildSource(config, tt.demo, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := typeName(source); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestJournalEntry(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := journalEntry(&discovery.Action{
		ID:        "action-1",
		Kind:      discovery.Liked,
		Candidate: profile.Candidate{ID: "profile-1", Name: "Emma"},
		Super:     true,
		Timestamp: at,
	}, true)

	want := journal.Entry{
		ActionID:      "action-1",
		CandidateID:   "profile-1",
		CandidateName: "Emma",
		Kind:          journal.KindLiked,
		Super:         true,
		Matched:       true,
		DecidedAt:     at,
	}
	if entry != want {
		t.Fatalf("expected %+v, got %+v", want, entry)
	}
}

func TestPrepareFiltersWithoutAI(t *testing.T) {
	t.Parallel()

	config := readTestConfig(t, testConfig)

	j, err := journal.Open(journal.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	filters := prepareFilters(context.Background(), config, j, false, zap.NewNop())

	var names []string
	for _, status := range filters.Describe() {
		names = append(names, status.Name)
	}

	want := []string{"without_images", "self", "age_range", "distance", "decided", "ai_fit"}
	if !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	candidates := &profile.Candidates{Items: []*profile.Candidate{
		{ID: "me", Images: []string{"a"}},
		{ID: "young", Age: 20, Images: []string{"a"}},
		{ID: "far", Age: 30, Distance: 100, Images: []string{"a"}},
		{ID: "ok", Age: 30, Distance: 5, Images: []string{"a"}},
	}}

	got, err := filters.RunFilters(context.Background(), candidates)
	if err != nil {
		t.Fatalf("run filters: %v", err)
	}
	if !slices.Equal(got.IDs(), []string{"ok"}) {
		t.Fatalf("expected only ok to remain, got %v", got.IDs())
	}
}

func TestPrepareFiltersDisablesBrokenAI(t *testing.T) {
	t.Parallel()

	config := readTestConfig(t, testConfig+`
ai:
  enabled: true
  provider: openai
`)

	j, err := journal.Open(journal.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	filters := prepareFilters(context.Background(), config, j, false, zap.NewNop())

	var aiStatus *filtering.Status
	for _, status := range filters.Describe() {
		if status.Name == filtering.AIFitName {
			aiStatus = &status
		}
	}
	if aiStatus == nil {
		t.Fatalf("expected %s step in %+v", filtering.AIFitName, filters.Describe())
	}
	if aiStatus.Enabled {
		t.Fatalf("expected ai step to be disabled")
	}
	if !strings.Contains(aiStatus.Reason, "unsupported ai provider") {
		t.Fatalf("expected provider error as reason, got %q", aiStatus.Reason)
	}

	candidates := &profile.Candidates{Items: []*profile.Candidate{
		{ID: "ok", Age: 30, Distance: 5, Images: []string{"a"}},
	}}
	got, err := filters.RunFilters(context.Background(), candidates)
	if err != nil {
		t.Fatalf("run filters: %v", err)
	}
	if !slices.Equal(got.IDs(), []string{"ok"}) {
		t.Fatalf("expected ok to remain, got %v", got.IDs())
	}
}
