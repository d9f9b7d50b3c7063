package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/pkg/dateutil"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStorageUnavailable wraps any failure to write a record to the
// underlying medium (disk full, permissions, unreachable directory).
var ErrStorageUnavailable = errors.New("break record storage unavailable")

// BreakRecordRepository is the append-only durable log of break events.
//
// Append must be safe for concurrent callers. QueryRange returns the
// records with start <= timestamp < end in chronological order.
type BreakRecordRepository interface {
	Append(record *models.BreakRecord) error
	QueryRange(start, end time.Time) ([]models.BreakRecord, error)
	Close() error
}

// partition is one month's database. Appends to the same partition are
// serialized; different months may write in parallel.
type partition struct {
	mu sync.Mutex
	db *gorm.DB
}

// GormBreakRecordRepository stores records in one SQLite database per
// calendar month under a base directory: <dir>/breaks_YYYY-MM.db.
// Partitions are opened lazily and the handles cached for the process
// lifetime.
type GormBreakRecordRepository struct {
	dir    string
	logger *logrus.Logger

	mu         sync.Mutex
	partitions map[string]*partition
}

// NewGormBreakRecordRepository creates the base directory and opens the
// current month's partition eagerly, so an unmounted or unwritable
// medium fails at startup instead of on the first user action.
func NewGormBreakRecordRepository(dir string, now time.Time) (*GormBreakRecordRepository, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}

	r := &GormBreakRecordRepository{
		dir:        dir,
		logger:     log,
		partitions: make(map[string]*partition),
	}

	if _, err := r.partitionFor(dateutil.MonthKey(now)); err != nil {
		return nil, err
	}

	log.WithField("dir", dir).Info("Break record repository initialized")
	return r, nil
}

func (r *GormBreakRecordRepository) partitionPath(key string) string {
	return filepath.Join(r.dir, fmt.Sprintf("breaks_%s.db", key))
}

func (r *GormBreakRecordRepository) partitionFor(key string) (*partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.partitions[key]; ok {
		return p, nil
	}

	db, err := gorm.Open(sqlite.Open(r.partitionPath(key)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		r.logger.WithError(err).WithField("partition", key).Error("Failed to open partition")
		return nil, fmt.Errorf("open partition %s: %w", key, err)
	}

	if err := db.AutoMigrate(&models.BreakRecord{}); err != nil {
		r.logger.WithError(err).WithField("partition", key).Error("Failed to migrate partition")
		return nil, fmt.Errorf("migrate partition %s: %w", key, err)
	}

	p := &partition{db: db}
	r.partitions[key] = p

	r.logger.WithField("partition", key).Info("Opened break record partition")
	return p, nil
}

// Append writes one record to its month partition. The record ID is
// scoped to the partition. Failures are wrapped in
// ErrStorageUnavailable; the record is never partially written.
func (r *GormBreakRecordRepository) Append(record *models.BreakRecord) error {
	if record == nil || !record.IsValid() {
		return errors.New("invalid break record")
	}

	key := dateutil.MonthKey(record.Timestamp)
	p, err := r.partitionFor(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Appends are inserts only; records are immutable once written.
	rec := *record
	rec.ID = 0
	if result := p.db.Create(&rec); result.Error != nil {
		r.logger.WithError(result.Error).WithFields(logrus.Fields{
			"user_id":   record.UserID,
			"partition": key,
		}).Error("Failed to append break record")
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, result.Error)
	}
	record.ID = rec.ID

	r.logger.WithFields(logrus.Fields{
		"id":        rec.ID,
		"user_id":   rec.UserID,
		"category":  rec.Category,
		"action":    rec.Action,
		"partition": key,
	}).Info("Break record appended")

	return nil
}

// QueryRange reads records with start <= timestamp < end across all
// month partitions in the range, in chronological order. An unreadable
// partition degrades the result: it is logged and skipped so the
// dashboard keeps working on the months that are still readable.
func (r *GormBreakRecordRepository) QueryRange(start, end time.Time) ([]models.BreakRecord, error) {
	if !end.After(start) {
		return nil, nil
	}

	var out []models.BreakRecord
	for _, key := range dateutil.MonthsInRange(start, end.Add(-time.Nanosecond)) {
		// Months with no database yet simply hold no records.
		if _, err := os.Stat(r.partitionPath(key)); os.IsNotExist(err) {
			continue
		}

		p, err := r.partitionFor(key)
		if err != nil {
			r.logger.WithError(err).WithField("partition", key).Warn("Skipping unreadable partition")
			continue
		}

		var records []models.BreakRecord
		result := p.db.
			Where("timestamp >= ? AND timestamp < ?", start, end).
			Order("timestamp ASC, id ASC").
			Find(&records)
		if result.Error != nil {
			r.logger.WithError(result.Error).WithField("partition", key).Warn("Skipping partition after query error")
			continue
		}

		out = append(out, records...)
	}

	return out, nil
}

// Close releases all cached partition handles.
func (r *GormBreakRecordRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, p := range r.partitions {
		sqlDB, err := p.db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close partition %s: %w", key, err)
		}
		delete(r.partitions, key)
	}
	return firstErr
}
