package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/journal"
	"github.com/spigell/lovemeet/internal/logger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print decisions recorded in the journal",
	Run: func(cmd *cobra.Command, _ []string) {
		history(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Bool("matches", false, "print matched candidates only")
}

func history(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	j, err := journal.Open(config.Journal.Driver, config.Journal.Path)
	if err != nil {
		logger.Fatal("opening the decision journal", zap.Error(err))
	}
	defer j.Close()

	entries, err := j.Entries(ctx)
	if err != nil {
		logger.Fatal("reading the decision journal", zap.Error(err))
	}

	matchesOnly, _ := cmd.Flags().GetBool("matches")
	printEntries(logger, entries, matchesOnly)
}

func printEntries(log *zap.Logger, entries []journal.Entry, matchesOnly bool) {
	for _, e := range entries {
		if matchesOnly && !e.Matched {
			continue
		}
		log.Info(e.Kind,
			zap.String(logger.FieldCandidateID, e.CandidateID),
			zap.String(logger.FieldCandidateName, e.CandidateName),
			zap.Bool("super", e.Super),
			zap.Bool("matched", e.Matched),
			zap.Time("decided_at", e.DecidedAt),
		)
	}

	stats := journal.Summarize(entries)
	log.Info("journal summary",
		zap.Int("liked", stats.Liked),
		zap.Int("passed", stats.Passed),
		zap.Int("super_liked", stats.Super),
		zap.Int("matched", stats.Matched),
	)
}
