package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/lovemeet/internal/discovery"
	"github.com/spigell/lovemeet/internal/profile"
)

const (
	app = "lovemeet"

	envAPITokenFile = "LOVEMEET_API_TOKEN_FILE"
	envGeminiKey    = "GEMINI_API_KEY_FILE"
)

type Config struct {
	Viewer    *ViewerConfig    `mapstructure:"viewer"`
	Source    *SourceConfig    `mapstructure:"source"`
	Discovery *DiscoveryConfig `mapstructure:"discovery"`
	Journal   *JournalConfig   `mapstructure:"journal"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type ViewerConfig struct {
	ID          string               `mapstructure:"id"`
	Name        string               `mapstructure:"name"`
	Age         int                  `mapstructure:"age"`
	Bio         string               `mapstructure:"bio"`
	Tags        []string             `mapstructure:"tags"`
	Location    *profile.Coordinates `mapstructure:"location"`
	Preferences *PreferencesConfig   `mapstructure:"preferences"`
}

type PreferencesConfig struct {
	AgeMin      int `mapstructure:"age-min"`
	AgeMax      int `mapstructure:"age-max"`
	MaxDistance int `mapstructure:"max-distance"`
}

type SourceConfig struct {
	// Kind is one of api, file or demo.
	Kind string     `mapstructure:"kind"`
	API  *APIConfig `mapstructure:"api"`
	File string     `mapstructure:"file"`
}

type APIConfig struct {
	URL       string `mapstructure:"url"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	PageSize  int    `mapstructure:"page-size"`
	UserAgent string `mapstructure:"user-agent"`
}

type DiscoveryConfig struct {
	MatchProbability float64 `mapstructure:"match-probability"`
	// SuperLikeProbability falls back to MatchProbability when unset.
	SuperLikeProbability *float64      `mapstructure:"super-like-probability"`
	SettleDelay          time.Duration `mapstructure:"settle-delay"`
	Seed                 uint64        `mapstructure:"seed"`
}

type JournalConfig struct {
	Driver         string `mapstructure:"driver"`
	Path           string `mapstructure:"path"`
	ExcludeDecided bool   `mapstructure:"exclude-decided"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "lovemeet is a terminal client for swiping through dating profiles",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("source.api.token-file", envAPITokenFile); err != nil {
		log.Fatalf("binding %s environment variable: %v", envAPITokenFile, err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", envGeminiKey); err != nil {
		log.Fatalf("binding %s environment variable: %v", envGeminiKey, err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is lovemeet.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", sourceDemo)
	v.SetDefault("source.api.page-size", 20)
	v.SetDefault("discovery.match-probability", discovery.DefaultMatchProbability)
	v.SetDefault("discovery.settle-delay", discovery.DefaultSettleDelay)
	v.SetDefault("journal.driver", "file")
	v.SetDefault("journal.path", app+"-journal.json")
	v.SetDefault("journal.exclude-decided", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	// The version command does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()

	// Without an explicit config file the defaults are enough to run the demo deck.
	var notFound viper.ConfigFileNotFoundError
	if err != nil && cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	if err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Viewer == nil {
		config.Viewer = &ViewerConfig{}
	}
	if config.Viewer.Preferences == nil {
		config.Viewer.Preferences = &PreferencesConfig{}
	}
	if config.Source == nil {
		config.Source = &SourceConfig{}
	}
	if config.Source.API == nil {
		config.Source.API = &APIConfig{}
	}
	if config.Discovery == nil {
		config.Discovery = &DiscoveryConfig{}
	}
	if config.Journal == nil {
		config.Journal = &JournalConfig{}
	}

	return config, nil
}

// matchPolicy converts the discovery section into the engine policy.
func (c *DiscoveryConfig) matchPolicy() discovery.MatchPolicy {
	policy := discovery.MatchPolicy{
		Probability:          c.MatchProbability,
		SuperLikeProbability: c.MatchProbability,
	}
	if c.SuperLikeProbability != nil {
		policy.SuperLikeProbability = *c.SuperLikeProbability
	}
	return policy
}

// asCandidate returns the viewer as a candidate-shaped profile for the AI matcher.
func (c *ViewerConfig) asCandidate() *profile.Candidate {
	return &profile.Candidate{
		ID:          c.ID,
		Name:        c.Name,
		Age:         c.Age,
		Bio:         c.Bio,
		Tags:        c.Tags,
		Coordinates: c.Location,
	}
}
