package handler

import (
	"fmt"
	"strings"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// performAction runs one Start/End through the engine and reports the
// outcome back to the chat. All validation happens in the core; this
// only translates the outcome into text.
func (h *Handler) performAction(
	chatID int64,
	user *tgbotapi.User,
	action models.BreakAction,
	category models.BreakCategory,
	reason string,
	at time.Time,
) {
	userID, username, fullName := h.identity(user)

	outcome := h.engine.HandleAction(userID, username, fullName, action, category, reason, at)

	keyboard := mainKeyboard()
	h.reply(chatID, h.formatOutcome(fullName, outcome), &keyboard)
}

func (h *Handler) formatOutcome(fullName string, o service.Outcome) string {
	switch {
	case o.Confirmed() && o.Action == models.ActionStart:
		text := fmt.Sprintf("✅ *%s* - Break Started\n\nType: %s", fullName, o.Category.Label())
		if o.Reason != "" {
			text += "\n📝 Reason: " + o.Reason
		}
		text += fmt.Sprintf("\n🕐 Time Out: %s\n\nDon't forget to clock back in when you return!",
			o.StartedAt.Format("2006-01-02 15:04:05"))
		return text

	case o.Confirmed():
		text := fmt.Sprintf("✅ *%s* - Break Ended\n\nType: %s\n🕐 Time Out: %s\n🕐 Time Back: %s\n⏱️ Duration: %.1f minutes",
			fullName,
			o.Category.Label(),
			o.StartedAt.Format("2006-01-02 15:04:05"),
			o.EndedAt.Format("2006-01-02 15:04:05"),
			o.DurationMinutes)
		if o.Reason != "" {
			text += "\n📝 Reason: " + o.Reason
		}
		return text + "\n\nWelcome back!"

	case o.Rejected():
		switch o.RejectReason {
		case service.RejectAlreadyActive:
			return fmt.Sprintf("⚠️ *Warning, %s!*\n\nYou still have an active break: %s (since %s)\n\nPlease clock back in first before starting a new break!",
				fullName, o.ActiveCategory.Label(), o.ActiveSince.Format("15:04"))
		case service.RejectNoActiveBreak:
			return fmt.Sprintf("⚠️ *No Active Break, %s!*\n\nYou don't have an active break to end.\nPlease start a break first!", fullName)
		case service.RejectCategoryMismatch:
			return fmt.Sprintf("⚠️ *Warning, %s!*\n\nYou are trying to end a '%s' break, but your active break is '%s'.",
				fullName, o.Category.Label(), o.ActiveCategory.Label())
		default:
			return fmt.Sprintf("⚠️ *%s*, that action is not recognized.", fullName)
		}

	default:
		// The break state changed but the log write failed; the user
		// should keep working and the floor lead investigates.
		return fmt.Sprintf("❌ *%s*, your action was registered but could not be written to the log.\nPlease notify your supervisor.", fullName)
	}
}

// sendTodaySummary sends the user's personal break summary for today.
func (h *Handler) sendTodaySummary(chatID int64, user *tgbotapi.User) {
	userID, _, fullName := h.identity(user)
	summary := h.agg.UserSummary(h.agg.Today(), userID)
	if summary.FullName == "" {
		summary.FullName = fullName
	}

	h.reply(chatID, formatUserSummary("📊 *Today's Break Summary*", summary), nil)
}

func formatUserSummary(title string, summary service.UserDailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n👤 %s\n📅 Date: %s\n\n", title, summary.FullName, summary.Date)
	b.WriteString("*Break Details:*\n")
	if len(summary.ByCategory) == 0 {
		b.WriteString("No breaks completed today.\n")
	} else {
		for _, line := range summary.ByCategory {
			fmt.Fprintf(&b, "• %s: %d time(s) - %.1f min\n", line.Category.Label(), line.Count, line.TotalDuration)
		}
	}
	fmt.Fprintf(&b, "\n⏱️ *Total Break Time (excluding CR):* %.1f minutes", summary.TotalMinutes)

	return b.String()
}
