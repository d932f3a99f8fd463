package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	KindEvent   = "event"
	KindCommand = "command"

	DefaultHistorySize = 500
)

type HistoryRecord struct {
	ID        string `gorm:"primaryKey"`
	Seq       int64  `gorm:"autoIncrement:false;index"`
	Kind      string `gorm:"index"`
	Subject   string
	Detail    string
	Failed    bool
	CreatedAt time.Time
}

// GormStore keeps the session history. It is opened on an in-memory sqlite
// database by default, so history lives as long as the process.
type GormStore struct {
	db      *gorm.DB
	maxRows int

	mu  sync.Mutex
	seq int64
}

func NewGormStore(path string, maxRows int, logger *log.Logger) (*GormStore, error) {
	if path == "" {
		path = ":memory:"
	}
	if maxRows <= 0 {
		maxRows = DefaultHistorySize
	}
	if logger == nil {
		logger = log.Default().WithPrefix("storage")
	}

	newLogger := gormlogger.New(
		logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&HistoryRecord{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	store := &GormStore{db: db, maxRows: maxRows}
	var last HistoryRecord
	if err := db.Order("seq desc").First(&last).Error; err == nil {
		store.seq = last.Seq
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return store, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) RecordEvent(ev domain.Event) error {
	subject := ev.Player
	detail := ev.Message
	if ev.Type == domain.EventClosed {
		detail = fmt.Sprintf("exit code %d", ev.ExitCode)
	}
	return s.insert(HistoryRecord{
		Kind:      KindEvent,
		Subject:   string(ev.Type),
		Detail:    joinNonEmpty(subject, detail),
		Failed:    ev.Type == domain.EventServerError,
		CreatedAt: ev.Time,
	})
}

func (s *GormStore) RecordCommand(command, response string, cmdErr error) error {
	rec := HistoryRecord{
		Kind:    KindCommand,
		Subject: command,
		Detail:  response,
	}
	if cmdErr != nil {
		rec.Failed = true
		rec.Detail = cmdErr.Error()
	}
	return s.insert(rec)
}

func (s *GormStore) insert(rec HistoryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.ID = uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(func(tx *gorm.DB) error {
		s.seq++
		rec.Seq = s.seq
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		cutoff := s.seq - int64(s.maxRows)
		if cutoff > 0 {
			return tx.Where("seq <= ?", cutoff).Delete(&HistoryRecord{}).Error
		}
		return nil
	})
}

// ListHistory returns up to limit entries, newest first.
func (s *GormStore) ListHistory(limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > s.maxRows {
		limit = s.maxRows
	}

	var records []HistoryRecord
	if err := s.db.Order("seq desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.HistoryEntry{
			ID:        r.ID,
			Kind:      r.Kind,
			Subject:   r.Subject,
			Detail:    r.Detail,
			Failed:    r.Failed,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ": " + b
	}
}
