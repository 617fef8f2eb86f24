package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle backing the recommendation audit log.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed audit database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&RecommendationEvent{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveEvent inserts an audit row, assigning an id when none is set.
func (d *Database) SaveEvent(event *RecommendationEvent) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if event == nil {
		return errors.New("event is nil")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(event).Error
}

// ListEvents returns the most recent audit rows, newest first.
func (d *Database) ListEvents(limit int) ([]RecommendationEvent, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []RecommendationEvent
	if err := d.gorm.Model(&RecommendationEvent{}).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rows, nil
}

// BranchCounts aggregates the audit log by pipeline branch, most frequent first.
func (d *Database) BranchCounts() ([]BranchCount, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var results []BranchCount
	query := d.gorm.Model(&RecommendationEvent{}).
		Select("branch, COUNT(*) AS total").
		Group("branch").
		Order("total DESC")
	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("branch counts: %w", err)
	}
	return results, nil
}
