package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/ai"
	"github.com/spigell/lovemeet/internal/ai/gemini"
	"github.com/spigell/lovemeet/internal/discovery"
	"github.com/spigell/lovemeet/internal/filtering"
	"github.com/spigell/lovemeet/internal/journal"
	"github.com/spigell/lovemeet/internal/logger"
	"github.com/spigell/lovemeet/internal/profile"
	"github.com/spigell/lovemeet/internal/secrets"
)

const (
	sourceAPI  = "api"
	sourceFile = "file"
	sourceDemo = "demo"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive discovery session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("demo", false, "use the built-in demo deck instead of the configured source")
	runCmd.Flags().Uint64("seed", 0, "seed for match draws and the demo deck. 0 means random")
	runCmd.Flags().StringP("source-file", "s", "", "read candidates from a JSON file")
	runCmd.Flags().BoolP("include-decided", "f", false, "do not exclude candidates decided in earlier sessions")

	viper.BindPFlag("discovery.seed", runCmd.Flags().Lookup("seed"))
	viper.BindPFlag("source.file", runCmd.Flags().Lookup("source-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the lovemeet", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	demo, _ := cmd.Flags().GetBool("demo")
	source, err := buildSource(config, demo, logger)
	if err != nil {
		logger.Fatal("building a profile source", zap.Error(err))
	}

	j, err := journal.Open(config.Journal.Driver, config.Journal.Path)
	if err != nil {
		logger.Fatal("opening the decision journal", zap.Error(err))
	}
	defer j.Close()

	includeDecided, _ := cmd.Flags().GetBool("include-decided")
	filters := prepareFilters(ctx, config, j, !config.Journal.ExcludeDecided || includeDecided, logger)

	deck, err := loadDeck(ctx, source, filters, logger)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}

	settled := make(chan discovery.Outcome, 1)

	var rng discovery.Rand
	if config.Discovery.Seed != 0 {
		rng = discovery.NewRand(config.Discovery.Seed)
	}

	policy := config.Discovery.matchPolicy()
	engine, err := discovery.New(deck.Values(), discovery.Options{
		Policy:      &policy,
		Rand:        rng,
		SettleDelay: config.Discovery.SettleDelay,
		Logger:      logger,
		OnSettle: func(out discovery.Outcome) {
			settled <- out
		},
	})
	if err != nil {
		logger.Fatal("creating the discovery engine", zap.Error(err))
	}

	s := &session{
		engine:  engine,
		journal: j,
		source:  source,
		filters: filters,
		deck:    deck,
		settled: settled,
		logger:  logger,
		prompt:  promptSelect,
	}

	if err := s.loop(ctx); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// buildSource picks the profile source. The demo flag wins over a source
// file, which wins over the configured kind.
func buildSource(config *Config, demo bool, logger *zap.Logger) (profile.Source, error) {
	kind := strings.ToLower(strings.TrimSpace(config.Source.Kind))
	switch {
	case demo:
		kind = sourceDemo
	case strings.TrimSpace(config.Source.File) != "" && kind != sourceAPI:
		kind = sourceFile
	}

	switch kind {
	case sourceDemo, "":
		return profile.NewDemoSource(config.Discovery.Seed), nil
	case sourceFile:
		if strings.TrimSpace(config.Source.File) == "" {
			return nil, errors.New("source.file is required for the file source")
		}
		return profile.NewFileSource(config.Source.File), nil
	case sourceAPI:
		return newAPIClient(config, logger)
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", config.Source.Kind)
	}
}

func newAPIClient(config *Config, logger *zap.Logger) (*profile.Client, error) {
	api := config.Source.API
	if strings.TrimSpace(api.URL) == "" {
		return nil, errors.New("source.api.url is required for the api source")
	}

	token, err := secrets.Load(secrets.Source{
		Name:  "api token",
		Value: api.Token,
		File:  api.TokenFile,
		Env:   envAPITokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set source.api.token-file or %s)", err, envAPITokenFile)
	}

	viewer := &profile.Viewer{ID: config.Viewer.ID, Coordinates: config.Viewer.Location}
	client := profile.NewClient(api.URL, token, viewer, logger)

	if api.UserAgent != "" {
		client.UserAgent = api.UserAgent
	}
	if api.PageSize > 0 {
		client.PageSize = api.PageSize
	}

	return client, nil
}

// loadDeck fetches candidates and runs the filter pipeline over them.
func loadDeck(ctx context.Context, source profile.Source, filters *filtering.Filtering, logger *zap.Logger) (*profile.Candidates, error) {
	candidates, err := source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	logger.Info("getting candidates", zap.Int("count", candidates.Len()))

	filtered, err := filters.RunFilters(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}

	logger.Info("candidates ready", zap.Int("count", filtered.Len()))
	return filtered, nil
}

func prepareFilters(ctx context.Context, config *Config, j journal.Journal, includeDecided bool, logger *zap.Logger) *filtering.Filtering {
	aiFilter, aiErr := prepareAIFilter(ctx, config.AI, config.Viewer.asCandidate(), logger)
	if aiErr != nil {
		logger.Warn("skipping AI filter", zap.Error(aiErr))
		aiFilter = filtering.NewAIFit(nil, nil)
	}

	prefs := config.Viewer.Preferences
	steps := []filtering.Filter{
		filtering.NewWithoutImages(logger),
		filtering.NewSelf(config.Viewer.ID),
		filtering.NewAgeRange(filtering.AgeRangeConfig{Min: prefs.AgeMin, Max: prefs.AgeMax}, logger),
		filtering.NewDistance(prefs.MaxDistance, logger),
		filtering.NewDecided(&filtering.DecidedConfig{Ignore: includeDecided}, j, logger),
		aiFilter,
	}

	filters := filtering.New(steps, logger)
	if aiErr != nil {
		filters.DisableByName(filtering.AIFitName, aiErr.Error())
	}

	return filters
}

func prepareAIFilter(ctx context.Context, config *AIConfig, viewer *profile.Candidate, logger *zap.Logger) (filtering.Filter, error) {
	if config == nil || !config.Enabled {
		return filtering.NewAIFit(&filtering.AIFitFilterConfig{
			Enabled: false,
		}, nil), nil
	}

	if config.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}

	aiConfig := &filtering.AIFitFilterConfig{
		Enabled:         config.Enabled,
		Provider:        config.Provider,
		MinimumFitScore: config.MinimumFitScore,
		Gemini: &filtering.AIGeminiConfig{
			Model:        config.Gemini.Model,
			MaxRetries:   config.Gemini.MaxRetries,
			MaxLogLength: config.Gemini.MaxLogLength,
		},
	}

	matcher, err := newAIMatcher(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai matcher: %w", err)
	}

	return filtering.NewAIFit(aiConfig, &filtering.AIFitFilterDeps{
		Logger:  logger,
		Matcher: matcher,
		Viewer:  viewer,
	}), nil
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   envGeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, envGeminiKey)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minScore := max(cfg.MinimumFitScore, 0)

	matcherLogger := logger.With(zap.Float64("minimum_fit_score", minScore))

	return gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength, matcherLogger), nil
}
