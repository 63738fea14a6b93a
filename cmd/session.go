package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/lovemeet/internal/discovery"
	"github.com/spigell/lovemeet/internal/filtering"
	"github.com/spigell/lovemeet/internal/journal"
	"github.com/spigell/lovemeet/internal/logger"
	"github.com/spigell/lovemeet/internal/profile"
)

const (
	PromptLike             = "Like"
	PromptPass             = "Pass"
	PromptSuperLike        = "Super like"
	PromptUndo             = "Undo"
	PromptNextImage        = "Next image"
	PromptPrevImage        = "Previous image"
	PromptReportByLocation = "Report by location"
	PromptCandidatesToFile = "Dump candidates to file"
	PromptRefresh          = "Refresh"
	PromptQuit             = "Quit"
)

var errExit = errors.New("exit requested")

// promptFunc asks the user to pick one of items.
type promptFunc func(label string, items []string) (string, error)

func promptSelect(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
	}
	_, selected, err := prompt.Run()
	return selected, err
}

type session struct {
	engine  *discovery.Engine
	journal journal.Journal
	source  profile.Source
	filters *filtering.Filtering
	deck    *profile.Candidates
	settled <-chan discovery.Outcome
	logger  *zap.Logger
	prompt  promptFunc
}

func (s *session) loop(ctx context.Context) error {
	for {
		snapshot := s.engine.Snapshot()
		s.show(snapshot)

		label := "What do you think?"
		if snapshot.Exhausted() {
			label = "You've seen everyone nearby"
		}

		action, err := s.prompt(label, menu(snapshot))
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return errExit
			}
			return err
		}

		if err := s.handleAction(ctx, action); err != nil {
			return err
		}
	}
}

// menu lists the actions that make sense for the snapshot.
func menu(snapshot discovery.Snapshot) []string {
	if snapshot.Exhausted() {
		return []string{PromptUndo, PromptRefresh, PromptQuit}
	}

	items := []string{PromptLike, PromptPass, PromptSuperLike, PromptUndo}
	if snapshot.ImageIndex < snapshot.ImageCount-1 {
		items = append(items, PromptNextImage)
	}
	if snapshot.ImageIndex > 0 {
		items = append(items, PromptPrevImage)
	}
	return append(items, PromptReportByLocation, PromptCandidatesToFile, PromptRefresh, PromptQuit)
}

func (s *session) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptLike:
		return s.decide(ctx, s.engine.Like)
	case PromptPass:
		return s.decide(ctx, s.engine.Pass)
	case PromptSuperLike:
		return s.decide(ctx, s.engine.SuperLike)
	case PromptUndo:
		return s.apply(ctx, s.engine.Undo())
	case PromptNextImage:
		return s.apply(ctx, s.engine.NextImage())
	case PromptPrevImage:
		return s.apply(ctx, s.engine.PrevImage())
	case PromptReportByLocation:
		pretty, _ := json.MarshalIndent(s.deck.ReportByLocation(), "", "  ")
		s.logger.Info(string(pretty), zap.Int("candidates count", s.deck.Len()))
		return nil
	case PromptCandidatesToFile:
		filename, err := s.deck.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump candidates to file: %w", err)
		}
		s.logger.Info("dumping candidates to file", zap.String("filename", filename))
		return nil
	case PromptRefresh:
		return s.refresh(ctx)
	case PromptQuit:
		s.logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// decide runs a decision intent and blocks until its transition settles, so
// the next prompt never races the settle delay.
func (s *session) decide(ctx context.Context, intent func() discovery.Outcome) error {
	out := intent()
	if err := s.apply(ctx, out); err != nil {
		return err
	}

	if !out.Has(discovery.EventDecided) {
		return nil
	}

	select {
	case settled := <-s.settled:
		return s.apply(ctx, settled)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) refresh(ctx context.Context) error {
	deck, err := loadDeck(ctx, s.source, s.filters, s.logger)
	if err != nil {
		return err
	}

	out, err := s.engine.Refresh(deck.Values(), false)
	if err != nil {
		return fmt.Errorf("refresh queue: %w", err)
	}

	if !out.Has(discovery.EventRejected) {
		s.deck = deck
	}
	return s.apply(ctx, out)
}

// apply logs the events of an outcome and mirrors decisions into the journal.
func (s *session) apply(ctx context.Context, out discovery.Outcome) error {
	for _, ev := range out.Events {
		log := logger.WithFields(s.logger, logger.CandidateFields(ev.Candidate)...)

		switch ev.Type {
		case discovery.EventDecided:
			log.Info("decided", zap.String("action", ev.Action.Kind.String()), zap.Bool("super", ev.Super))
			if err := s.journal.Record(ctx, journalEntry(ev.Action, out.Has(discovery.EventMatched))); err != nil {
				return fmt.Errorf("record decision: %w", err)
			}
		case discovery.EventMatched:
			log.Info("it's a match!")
		case discovery.EventNotMatched:
			log.Debug("no match this time")
		case discovery.EventAdvanced:
			log.Debug("next candidate")
		case discovery.EventExhausted:
			log.Info("no more profiles", zap.String("hint", "refresh to load new profiles or undo the last decision"))
		case discovery.EventUndoPerformed:
			log.Info("decision undone", zap.String("action", ev.Action.Kind.String()))
			if err := s.journal.Remove(ctx, ev.Action.ID); err != nil {
				return fmt.Errorf("remove undone decision: %w", err)
			}
		case discovery.EventUndoEmpty:
			log.Info("nothing to undo")
		case discovery.EventRejected:
			log.Warn("action rejected", zap.String("reason", string(ev.Reason)))
		case discovery.EventRefreshed:
			log.Info("profiles refreshed", zap.Int("remaining", out.Snapshot.Remaining))
		}
	}
	return nil
}

func journalEntry(action *discovery.Action, matched bool) journal.Entry {
	return journal.Entry{
		ActionID:      action.ID,
		CandidateID:   action.Candidate.ID,
		CandidateName: action.Candidate.Name,
		Kind:          action.Kind.String(),
		Super:         action.Super,
		Matched:       matched,
		DecidedAt:     action.Timestamp,
	}
}

func (s *session) show(snapshot discovery.Snapshot) {
	stats := []zap.Field{
		zap.Int("remaining", snapshot.Remaining),
		zap.Int("liked", snapshot.Liked),
		zap.Int("passed", snapshot.Passed),
	}

	if snapshot.Exhausted() {
		s.logger.Info("no more profiles", append(stats,
			zap.Strings("recent_liked", snapshot.RecentLiked),
			zap.Strings("recent_passed", snapshot.RecentPassed),
		)...)
		return
	}

	c := snapshot.Current
	fields := append(logger.CandidateFields(c),
		zap.Int("age", c.Age),
		zap.String("location", c.Location),
		zap.String("distance", fmt.Sprintf("%d km away", c.Distance)),
		zap.String("bio", c.Bio),
		zap.String("interests", strings.Join(c.Tags, ", ")),
		zap.String("photo", fmt.Sprintf("%d/%d %s", snapshot.ImageIndex+1, snapshot.ImageCount, snapshot.CurrentImage())),
		zap.Strings("coming_up", snapshot.Upcoming),
	)

	s.logger.Info("current profile", append(fields, stats...)...)
}
