package handler

import (
	"context"
	"fmt"
	"time"

	"breaktime-tracker-bot/internal/models"

	"github.com/sirupsen/logrus"
)

// Reminder thresholds per category. Restroom and Other breaks are
// deliberately exempt.
var reminderThresholds = map[models.BreakCategory]time.Duration{
	models.CategorySmoke: 15 * time.Minute,
	models.CategoryMeal:  60 * time.Minute,
}

// RunReminderLoop nags users whose break has run past its category
// threshold. One reminder per break: the sent marker is keyed by the
// break's start time, so a new break of the same user reminds again.
func (h *Handler) RunReminderLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.checkReminders()
		}
	}
}

func (h *Handler) checkReminders() {
	now := h.now()
	active := h.engine.ActiveBreaks()

	h.mu.Lock()
	// Drop markers for breaks that have ended.
	for userID, startedAt := range h.remindersSent {
		state, ok := active[userID]
		if !ok || !state.StartedAt.Equal(startedAt) {
			delete(h.remindersSent, userID)
		}
	}
	h.mu.Unlock()

	for userID, state := range active {
		threshold, ok := reminderThresholds[state.Category]
		if !ok {
			continue
		}

		elapsed := now.Sub(state.StartedAt)
		if elapsed < threshold {
			continue
		}

		h.mu.Lock()
		already := h.remindersSent[userID].Equal(state.StartedAt)
		if !already {
			h.remindersSent[userID] = state.StartedAt
		}
		h.mu.Unlock()
		if already {
			continue
		}

		text := fmt.Sprintf("🔔 *Break Reminder!*\n\nYou have been on your '%s' break for %d minutes (limit: %d minutes)!",
			state.Category.Label(), int(elapsed.Minutes()), int(threshold.Minutes()))
		h.reply(userID, text, nil)

		logrus.WithFields(logrus.Fields{
			"user_id":  userID,
			"category": state.Category,
			"elapsed":  int(elapsed.Minutes()),
		}).Info("Break reminder sent")
	}
}
