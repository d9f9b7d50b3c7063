package handler

import (
	"strings"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/config"
	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/service"
	"breaktime-tracker-bot/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// pendingStart buffers an O1 button press while the bot waits for the
// user to type the reason. The break itself has not started in the
// core yet; it begins, stamped with the press time, once the reason
// arrives.
type pendingStart struct {
	startedAt time.Time
}

type Handler struct {
	client *telegram.Client
	engine *service.BreakEngine
	agg    *service.AggregationService
	config *config.BotConfig

	mu            sync.Mutex
	pendingReason map[int64]pendingStart
	remindersSent map[int64]time.Time
}

func NewHandler(
	client *telegram.Client,
	engine *service.BreakEngine,
	agg *service.AggregationService,
	cfg *config.BotConfig,
) *Handler {
	return &Handler{
		client:        client,
		engine:        engine,
		agg:           agg,
		config:        cfg,
		pendingReason: make(map[int64]pendingStart),
		remindersSent: make(map[int64]time.Time),
	}
}

func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.CallbackQuery != nil {
			h.handleCallbackQuery(update.CallbackQuery)
			continue
		}

		if update.Message == nil {
			continue
		}

		h.handleMessage(update.Message)
	}
}

func (h *Handler) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	user := callback.From
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Dismiss the spinner on the pressed button.
	if _, err := h.client.Bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logrus.WithError(err).Warn("Failed to answer callback query")
	}

	if data == "summary" {
		h.sendTodaySummary(chatID, user)
		return
	}

	action, category, ok := parseActionCode(data)
	if !ok {
		return
	}

	now := h.now()

	// The "Other - Out" button starts a short conversation: the break
	// begins only after the user types the reason, timed from the
	// button press.
	if action == models.ActionStart && category == models.CategoryOther {
		h.mu.Lock()
		h.pendingReason[user.ID] = pendingStart{startedAt: now}
		h.mu.Unlock()

		text := "⚠️ *Other Concern - Out, " + displayName(user) + "*\n\n" +
			"🕐 Time: " + now.Format("2006-01-02 15:04:05") + "\n\n" +
			"Please type the reason for your break:"
		h.reply(chatID, text, nil)
		return
	}

	h.performAction(chatID, user, action, category, "", now)
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	logrus.Infof("[%s] %s", message.From.UserName, message.Text)

	chatID := message.Chat.ID
	user := message.From

	// A plain text message from a user we just asked for a reason
	// completes the buffered "Other" start.
	if !message.IsCommand() {
		h.mu.Lock()
		pending, waiting := h.pendingReason[user.ID]
		if waiting {
			delete(h.pendingReason, user.ID)
		}
		h.mu.Unlock()

		if waiting {
			reason := strings.TrimSpace(message.Text)
			if reason == "" {
				reason = "unspecified"
			}
			h.performAction(chatID, user, models.ActionStart, models.CategoryOther, reason, pending.startedAt)
			return
		}

		h.reply(chatID, "🕐 Use /menu to log your break time.", nil)
		return
	}

	h.handleCommand(message)
}

func (h *Handler) now() time.Time {
	return time.Now().In(h.config.Timezone)
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := h.client.Bot.Send(msg); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to send message")
	}
}

func displayName(user *tgbotapi.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func (h *Handler) identity(user *tgbotapi.User) (int64, string, string) {
	return user.ID, user.UserName, displayName(user)
}
