package handler

import (
	"fmt"
	"strings"

	"breaktime-tracker-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	command := strings.ToUpper(message.Command())
	args := strings.TrimSpace(message.CommandArguments())

	if action, category, ok := parseActionCode(command); ok {
		h.handleBreakCommand(message, action, category, args)
		return
	}

	switch message.Command() {
	case "start":
		h.sendWelcome(message)
	case "menu":
		keyboard := mainKeyboard()
		h.reply(message.Chat.ID, "🕐 *Break Time Tracker*\n\nSelect an option:", &keyboard)
	case "summary":
		h.sendTodaySummary(message.Chat.ID, message.From)
	case "status":
		h.sendStatus(message)
	case "cancel":
		h.cancelPendingReason(message)
	case "help":
		h.sendHelp(message)
	default:
		h.reply(message.Chat.ID, "❌ Unknown command. Use /help for the list of commands.", nil)
	}
}

// handleBreakCommand covers /e1 ... /o2. The "other" start takes its
// reason from the command arguments: `/o1 emergency call`.
func (h *Handler) handleBreakCommand(message *tgbotapi.Message, action models.BreakAction, category models.BreakCategory, reason string) {
	if action == models.ActionStart && category == models.CategoryOther && reason == "" {
		h.reply(message.Chat.ID, fmt.Sprintf(
			"⚠️ *%s*\n\nPlease provide a reason for your 'Other' break.\nExample: `/o1 emergency call`",
			displayName(message.From)), nil)
		return
	}

	h.performAction(message.Chat.ID, message.From, action, category, reason, h.now())
}

func (h *Handler) sendWelcome(message *tgbotapi.Message) {
	keyboard := mainKeyboard()
	text := fmt.Sprintf(
		"👋 Welcome %s!\n\n🕐 *Break Time Tracker Bot*\n\n"+
			"Track your breaks using the buttons below:\n\n"+
			"🍽️ *Eat* - E1 (Out) / E2 (Back)\n"+
			"🚻 *Comfort Room* - C1 (Out) / C2 (Back)\n"+
			"🚬 *Smoke Break* - S1 (Out) / S2 (Back)\n"+
			"⚠️ *Other Concerns* - O1 (Out) / O2 (Back)\n\n"+
			"Click a button to log your break time!",
		message.From.FirstName)
	h.reply(message.Chat.ID, text, &keyboard)
}

func (h *Handler) sendStatus(message *tgbotapi.Message) {
	userID, _, fullName := h.identity(message.From)

	state, onBreak := h.engine.ActiveBreak(userID)
	if !onBreak {
		h.reply(message.Chat.ID, fmt.Sprintf("✅ *%s*, you have no active break.", fullName), nil)
		return
	}

	text := fmt.Sprintf("🕐 *%s*, you are on a %s break since %s.",
		fullName, state.Category.Label(), state.StartedAt.Format("15:04:05"))
	if state.Reason != "" {
		text += "\n📝 Reason: " + state.Reason
	}
	h.reply(message.Chat.ID, text, nil)
}

func (h *Handler) cancelPendingReason(message *tgbotapi.Message) {
	h.mu.Lock()
	_, waiting := h.pendingReason[message.From.ID]
	delete(h.pendingReason, message.From.ID)
	h.mu.Unlock()

	if waiting {
		h.reply(message.Chat.ID, "Operation cancelled.", nil)
		return
	}
	h.reply(message.Chat.ID, "Nothing to cancel.", nil)
}

func (h *Handler) sendHelp(message *tgbotapi.Message) {
	text := "🕐 *Break Time Tracker Bot*\n\n" +
		"/menu - show the break buttons\n" +
		"/summary - your break summary for today\n" +
		"/status - your current break, if any\n" +
		"/e1 /e2 - eating out / back\n" +
		"/c1 /c2 - comfort room out / back\n" +
		"/s1 /s2 - smoke break out / back\n" +
		"/o1 <reason> /o2 - other concern out / back\n" +
		"/cancel - cancel a pending reason prompt"
	h.reply(message.Chat.ID, text, nil)
}
