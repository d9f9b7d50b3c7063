package handler

import (
	"breaktime-tracker-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Action codes are the callback values behind the menu buttons and the
// matching slash commands: first letter picks the category, the digit
// picks Out (1) or Back (2).
var actionCodes = map[string]struct {
	action   models.BreakAction
	category models.BreakCategory
}{
	"E1": {models.ActionStart, models.CategoryMeal},
	"E2": {models.ActionEnd, models.CategoryMeal},
	"C1": {models.ActionStart, models.CategoryRestroom},
	"C2": {models.ActionEnd, models.CategoryRestroom},
	"S1": {models.ActionStart, models.CategorySmoke},
	"S2": {models.ActionEnd, models.CategorySmoke},
	"O1": {models.ActionStart, models.CategoryOther},
	"O2": {models.ActionEnd, models.CategoryOther},
}

func parseActionCode(code string) (models.BreakAction, models.BreakCategory, bool) {
	entry, ok := actionCodes[code]
	if !ok {
		return "", "", false
	}
	return entry.action, entry.category, true
}

func mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Eat Out (E1)", "E1"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Eat Back (E2)", "E2"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚻 CR Out (C1)", "C1"),
			tgbotapi.NewInlineKeyboardButtonData("✅ CR Back (C2)", "C2"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚬 Smoke Out (S1)", "S1"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Smoke Back (S2)", "S2"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Other Out (O1)", "O1"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Other Back (O2)", "O2"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 My Break Summary", "summary"),
		),
	)
}
