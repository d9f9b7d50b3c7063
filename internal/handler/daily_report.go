package handler

import (
	"context"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/pkg/dateutil"

	"github.com/sirupsen/logrus"
)

// RunDailyReportLoop runs the end-of-day reports shortly after each
// midnight in the operational zone: a "no BACK" audit in the logs and
// a personal summary DM for every agent active the previous day.
func (h *Handler) RunDailyReportLoop(ctx context.Context) {
	for {
		now := h.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 30, 0, h.config.Timezone).AddDate(0, 0, 1)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			h.runEndOfDayReports(h.now().AddDate(0, 0, -1))
		}
	}
}

func (h *Handler) runEndOfDayReports(day time.Time) {
	logrus.WithField("day", dateutil.DayKey(day)).Info("Running end-of-day reports")

	records, err := h.agg.Export(day, day, 0)
	if err != nil {
		logrus.WithError(err).Warn("End-of-day report: failed to read records")
		return
	}
	if len(records) == 0 {
		logrus.Info("No activity yesterday, skipping reports")
		return
	}

	h.reportDanglingBreaks(records, day)
	h.sendIndividualSummaries(records, day)
}

// reportDanglingBreaks flags users who clocked OUT more often than
// BACK for a category. The log alone cannot tell "still open" from
// "abandoned", so this is surfaced to the operators, never repaired.
func (h *Handler) reportDanglingBreaks(records []models.BreakRecord, day time.Time) {
	type key struct {
		userID   int64
		category models.BreakCategory
	}
	type counts struct {
		name string
		out  int
		back int
	}

	tally := make(map[key]*counts)
	for _, rec := range records {
		k := key{rec.UserID, rec.Category}
		c, ok := tally[k]
		if !ok {
			c = &counts{name: rec.FullName}
			tally[k] = c
		}
		if rec.Action == models.ActionStart {
			c.out++
		} else {
			c.back++
		}
	}

	found := false
	for k, c := range tally {
		if c.out > c.back {
			found = true
			logrus.WithFields(logrus.Fields{
				"day":       dateutil.DayKey(day),
				"user_id":   k.userID,
				"full_name": c.name,
				"category":  k.category,
				"missing":   c.out - c.back,
			}).Warn("Break without a matching BACK")
		}
	}
	if !found {
		logrus.WithField("day", dateutil.DayKey(day)).Info("All breaks were properly logged")
	}
}

func (h *Handler) sendIndividualSummaries(records []models.BreakRecord, day time.Time) {
	seen := make(map[int64]bool)
	for _, rec := range records {
		if seen[rec.UserID] {
			continue
		}
		seen[rec.UserID] = true

		summary := h.agg.UserSummary(day, rec.UserID)
		if summary.FullName == "" {
			summary.FullName = rec.FullName
		}
		h.reply(rec.UserID, formatUserSummary("📊 *Your Daily Break Summary*", summary), nil)
	}
}
