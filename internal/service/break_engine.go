package service

import (
	"errors"
	"math"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/observability"
	"breaktime-tracker-bot/internal/repository"
	"breaktime-tracker-bot/internal/session"

	"github.com/sirupsen/logrus"
)

// OutcomeStatus classifies the result of a break action.
type OutcomeStatus string

const (
	StatusConfirmed OutcomeStatus = "confirmed"
	StatusRejected  OutcomeStatus = "rejected"
	StatusFailed    OutcomeStatus = "failed"
)

// RejectReason names a validation rejection.
type RejectReason string

const (
	RejectAlreadyActive    RejectReason = "already_active"
	RejectNoActiveBreak    RejectReason = "no_active_break"
	RejectCategoryMismatch RejectReason = "category_mismatch"
	RejectInvalidRequest   RejectReason = "invalid_request"
)

// Outcome is what the transport reports back to the user after one
// break action.
type Outcome struct {
	Status   OutcomeStatus
	Action   models.BreakAction
	Category models.BreakCategory

	// Confirmed fields. StartedAt is set for both halves: the OUT time
	// on start, the matched OUT time on end.
	StartedAt       time.Time
	EndedAt         time.Time
	DurationMinutes float64
	Reason          string

	// Rejected fields. ActiveCategory/ActiveSince describe the break
	// that blocked the action, when one exists.
	RejectReason   RejectReason
	ActiveCategory models.BreakCategory
	ActiveSince    time.Time

	// Failed field.
	Err error
}

func (o Outcome) Confirmed() bool { return o.Status == StatusConfirmed }
func (o Outcome) Rejected() bool  { return o.Status == StatusRejected }
func (o Outcome) Failed() bool    { return o.Status == StatusFailed }

// RecordSink mirrors appended records to an external side channel.
// Implementations must not block and must never fail the action.
type RecordSink interface {
	Enqueue(record models.BreakRecord)
}

// BreakEngine is the only entry point that mutates session state and
// the durable log together. Actions for the same user are processed in
// arrival order via a per-user lock; a slow append for one user never
// blocks another.
type BreakEngine struct {
	tracker *session.Tracker
	store   repository.BreakRecordRepository
	sink    RecordSink
	logger  *logrus.Logger

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

// NewBreakEngine wires the engine. sink may be nil when no Excel Online
// mirror is configured.
func NewBreakEngine(tracker *session.Tracker, store repository.BreakRecordRepository, sink RecordSink) *BreakEngine {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &BreakEngine{
		tracker:   tracker,
		store:     store,
		sink:      sink,
		logger:    logger,
		userLocks: make(map[int64]*sync.Mutex),
	}
}

func (e *BreakEngine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

// ActiveBreak exposes the user's open break for status queries.
func (e *BreakEngine) ActiveBreak(userID int64) (session.State, bool) {
	return e.tracker.Peek(userID)
}

// ActiveBreaks copies the open breaks of all users, for the reminder
// job.
func (e *BreakEngine) ActiveBreaks() map[int64]session.State {
	return e.tracker.Snapshot()
}

// HandleAction validates one Start or End action against the session
// tracker, appends the record on success and returns the outcome. The
// session mutation happens before the append and is not rolled back if
// the append fails: live tracking stays correct even when the log
// lags, and the caller gets a distinct Failed outcome.
func (e *BreakEngine) HandleAction(
	userID int64,
	username string,
	fullName string,
	action models.BreakAction,
	category models.BreakCategory,
	reason string,
	at time.Time,
) Outcome {
	if !action.Valid() || !category.Valid() || userID == 0 {
		observability.RecordActionRejected(string(RejectInvalidRequest))
		return Outcome{
			Status:       StatusRejected,
			Action:       action,
			Category:     category,
			RejectReason: RejectInvalidRequest,
		}
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	switch action {
	case models.ActionStart:
		return e.handleStart(userID, username, fullName, category, reason, at)
	default:
		return e.handleEnd(userID, username, fullName, category, at)
	}
}

func (e *BreakEngine) handleStart(userID int64, username, fullName string, category models.BreakCategory, reason string, at time.Time) Outcome {
	if err := e.tracker.Begin(userID, category, reason, at); err != nil {
		var active *session.AlreadyActiveError
		if errors.As(err, &active) {
			e.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"category": category,
				"active":   active.Category,
			}).Debug("Start rejected: break already active")
			observability.RecordActionRejected(string(RejectAlreadyActive))
			return Outcome{
				Status:         StatusRejected,
				Action:         models.ActionStart,
				Category:       category,
				RejectReason:   RejectAlreadyActive,
				ActiveCategory: active.Category,
				ActiveSince:    active.Since,
			}
		}
		observability.RecordActionRejected(string(RejectInvalidRequest))
		return Outcome{
			Status:       StatusRejected,
			Action:       models.ActionStart,
			Category:     category,
			RejectReason: RejectInvalidRequest,
		}
	}

	if category != models.CategoryOther {
		reason = ""
	}

	record := models.BreakRecord{
		UserID:    userID,
		Username:  username,
		FullName:  fullName,
		Category:  category,
		Action:    models.ActionStart,
		Timestamp: at,
		Reason:    reason,
	}

	if err := e.store.Append(&record); err != nil {
		// The break is considered started: availability of live
		// tracking wins over log completeness.
		e.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"category": category,
		}).Error("Failed to persist OUT record")
		observability.RecordPersistenceFailure()
		return Outcome{
			Status:    StatusFailed,
			Action:    models.ActionStart,
			Category:  category,
			StartedAt: at,
			Reason:    reason,
			Err:       err,
		}
	}

	e.forward(record)
	observability.RecordActionConfirmed(string(category), string(models.ActionStart))

	e.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"category": category,
	}).Info("Break started")

	return Outcome{
		Status:    StatusConfirmed,
		Action:    models.ActionStart,
		Category:  category,
		StartedAt: at,
		Reason:    reason,
	}
}

func (e *BreakEngine) handleEnd(userID int64, username, fullName string, category models.BreakCategory, at time.Time) Outcome {
	matched, err := e.tracker.End(userID, category)
	if err != nil {
		var mismatch *session.CategoryMismatchError
		switch {
		case errors.Is(err, session.ErrNoActiveBreak):
			observability.RecordActionRejected(string(RejectNoActiveBreak))
			return Outcome{
				Status:       StatusRejected,
				Action:       models.ActionEnd,
				Category:     category,
				RejectReason: RejectNoActiveBreak,
			}
		case errors.As(err, &mismatch):
			observability.RecordActionRejected(string(RejectCategoryMismatch))
			return Outcome{
				Status:         StatusRejected,
				Action:         models.ActionEnd,
				Category:       category,
				RejectReason:   RejectCategoryMismatch,
				ActiveCategory: mismatch.Active,
			}
		default:
			observability.RecordActionRejected(string(RejectInvalidRequest))
			return Outcome{
				Status:       StatusRejected,
				Action:       models.ActionEnd,
				Category:     category,
				RejectReason: RejectInvalidRequest,
			}
		}
	}

	duration := roundMinutes(at.Sub(matched.StartedAt))

	record := models.BreakRecord{
		UserID:          userID,
		Username:        username,
		FullName:        fullName,
		Category:        category,
		Action:          models.ActionEnd,
		Timestamp:       at,
		DurationMinutes: duration,
	}

	if err := e.store.Append(&record); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"category": category,
		}).Error("Failed to persist BACK record")
		observability.RecordPersistenceFailure()
		return Outcome{
			Status:          StatusFailed,
			Action:          models.ActionEnd,
			Category:        category,
			StartedAt:       matched.StartedAt,
			EndedAt:         at,
			DurationMinutes: duration,
			Reason:          matched.Reason,
			Err:             err,
		}
	}

	e.forward(record)
	observability.RecordActionConfirmed(string(category), string(models.ActionEnd))

	e.logger.WithFields(logrus.Fields{
		"user_id":          userID,
		"category":         category,
		"duration_minutes": duration,
	}).Info("Break ended")

	return Outcome{
		Status:          StatusConfirmed,
		Action:          models.ActionEnd,
		Category:        category,
		StartedAt:       matched.StartedAt,
		EndedAt:         at,
		DurationMinutes: duration,
		Reason:          matched.Reason,
	}
}

func (e *BreakEngine) forward(record models.BreakRecord) {
	if e.sink != nil {
		e.sink.Enqueue(record)
	}
}

// roundMinutes converts a duration to minutes with one decimal place,
// clamped at zero. Clock skew must never produce a negative duration.
func roundMinutes(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(d.Minutes()*10) / 10
}
