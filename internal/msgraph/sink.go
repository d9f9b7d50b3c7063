package msgraph

import (
	"context"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/observability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExcelSink mirrors break records to an Excel Online table as a
// best-effort side channel. Enqueue never blocks: a full queue drops
// the record with a warning, and sync failures are logged and counted
// but never surfaced to the action that produced the record.
type ExcelSink struct {
	client    *Client
	fileID    string
	tableName string
	logger    *logrus.Logger

	queue chan models.BreakRecord
	wg    sync.WaitGroup
}

// NewExcelSink starts the single sync worker. Queue depth 256 is far
// beyond anything a floor of agents produces between Graph calls.
func NewExcelSink(client *Client, fileID, tableName string) *ExcelSink {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	s := &ExcelSink{
		client:    client,
		fileID:    fileID,
		tableName: tableName,
		logger:    logger,
		queue:     make(chan models.BreakRecord, 256),
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// Enqueue hands a record to the worker without blocking.
func (s *ExcelSink) Enqueue(record models.BreakRecord) {
	select {
	case s.queue <- record:
	default:
		observability.RecordSheetSyncDropped()
		s.logger.WithFields(logrus.Fields{
			"user_id": record.UserID,
			"action":  record.Action,
		}).Warn("Excel sync queue full, dropping record")
	}
}

// Close drains the queue and stops the worker.
func (s *ExcelSink) Close() {
	close(s.queue)
	s.wg.Wait()
}

func (s *ExcelSink) run() {
	defer s.wg.Done()

	for record := range s.queue {
		s.syncOne(record)
	}
}

func (s *ExcelSink) syncOne(record models.BreakRecord) {
	syncID := uuid.NewString()

	username := record.Username
	if username == "" {
		username = "N/A"
	}

	var duration any = ""
	if record.Action == models.ActionEnd {
		duration = record.DurationMinutes
	}

	// Column order of the BreakLog table: Timestamp, User ID, Username,
	// Full Name, Break Type, Action, Duration, Reason.
	row := []any{
		record.Timestamp.Format("2006-01-02 15:04:05"),
		record.UserID,
		username,
		record.FullName,
		record.Category.Label(),
		string(record.Action),
		duration,
		record.Reason,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.client.AddTableRow(ctx, s.fileID, s.tableName, row); err != nil {
		observability.RecordSheetSyncFailure()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"sync_id": syncID,
			"user_id": record.UserID,
			"action":  record.Action,
		}).Warn("Failed to sync record to Excel Online")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"sync_id":  syncID,
		"user_id":  record.UserID,
		"category": record.Category,
		"action":   record.Action,
	}).Debug("Record synced to Excel Online")
}
