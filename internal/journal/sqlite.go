package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Decision is the gorm model of a journal entry.
type Decision struct {
	ActionID      string `gorm:"primaryKey;size:64"`
	CandidateID   string `gorm:"index;size:128;not null"`
	CandidateName string `gorm:"size:255"`
	Kind          string `gorm:"size:16;not null"`
	Super         bool
	Matched       bool
	DecidedAt     time.Time `gorm:"index"`
}

func (Decision) TableName() string {
	return "decisions"
}

// SQLite stores the journal in a SQLite database.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens or creates the database at path. An empty path gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	if err := db.AutoMigrate(&Decision{}); err != nil {
		return nil, fmt.Errorf("migrate journal database: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, entry Entry) error {
	if err := validate(entry); err != nil {
		return err
	}

	row := Decision{
		ActionID:      entry.ActionID,
		CandidateID:   entry.CandidateID,
		CandidateName: entry.CandidateName,
		Kind:          entry.Kind,
		Super:         entry.Super,
		Matched:       entry.Matched,
		DecidedAt:     entry.DecidedAt.UTC(),
	}

	if result := s.db.WithContext(ctx).Create(&row); result.Error != nil {
		return fmt.Errorf("record decision %s: %w", entry.ActionID, result.Error)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, actionID string) error {
	result := s.db.WithContext(ctx).Where("action_id = ?", actionID).Delete(&Decision{})
	if result.Error != nil {
		return fmt.Errorf("remove decision %s: %w", actionID, result.Error)
	}
	return nil
}

func (s *SQLite) Entries(ctx context.Context) ([]Entry, error) {
	var rows []Decision
	if result := s.db.WithContext(ctx).Order("decided_at ASC").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("list decisions: %w", result.Error)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ActionID:      row.ActionID,
			CandidateID:   row.CandidateID,
			CandidateName: row.CandidateName,
			Kind:          row.Kind,
			Super:         row.Super,
			Matched:       row.Matched,
			DecidedAt:     row.DecidedAt,
		})
	}
	return entries, nil
}

func (s *SQLite) DecidedIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if result := s.db.WithContext(ctx).Model(&Decision{}).Distinct().Pluck("candidate_id", &ids); result.Error != nil {
		return nil, fmt.Errorf("list decided ids: %w", result.Error)
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get journal connection: %w", err)
	}
	return sqlDB.Close()
}
