package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"assistbot/internal/intent"
	"assistbot/internal/metrics"
	"assistbot/internal/models"
	"assistbot/internal/service"
)

// Callback payloads for the confirmation keyboard. The draft ID rides along
// so a button from a superseded message cannot resolve a newer draft.
const (
	CallbackPrefix  = "draft:"
	callbackConfirm = "confirm:"
	callbackCancel  = "cancel:"
)

// FreeTextHandler routes plain (non-command) messages: schedule questions go
// to the query path, everything else starts the event-creation flow.
type FreeTextHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewFreeTextHandler creates the handler for plain text messages.
func NewFreeTextHandler(svc *service.Service, logger *logrus.Logger) *FreeTextHandler {
	return &FreeTextHandler{svc: svc, logger: logger}
}

// Handle classifies the message and dispatches it.
func (h *FreeTextHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()
	text := message.Text

	user, err := h.svc.EnsureUser(ctx, message.From.ID,
		message.From.UserName, message.From.FirstName, message.From.LastName)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	kind := h.svc.Classifier.Classify(text)
	metrics.UpdatesHandled.WithLabelValues(string(kind)).Inc()

	h.logger.WithFields(logrus.Fields{
		"user_id": message.From.ID,
		"intent":  kind,
	}).Debug("Classified free-text message")

	if kind == intent.Query {
		return h.handleQuery(ctx, bot, message, user, text)
	}
	return h.handleAddEvent(ctx, bot, message, user, text)
}

func (h *FreeTextHandler) handleQuery(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *models.User, text string) error {
	result, err := h.svc.QuerySchedule(ctx, user, text)
	if err != nil {
		if reply, ok := explainError(err); ok {
			return send(bot, message.Chat.ID, reply)
		}
		return fmt.Errorf("query schedule: %w", err)
	}

	return send(bot, message.Chat.ID, formatSchedule(result, h.svc.UserLocation(user)))
}

func (h *FreeTextHandler) handleAddEvent(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message, user *models.User, text string) error {
	draft, err := h.svc.PrepareDraft(ctx, user, text)
	if err != nil {
		if reply, ok := explainError(err); ok {
			return send(bot, message.Chat.ID, reply)
		}
		return fmt.Errorf("prepare draft: %w", err)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", CallbackPrefix+callbackConfirm+draft.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", CallbackPrefix+callbackCancel+draft.ID),
		),
	)

	var sb strings.Builder
	sb.WriteString("Here's what I understood:\n\n")
	sb.WriteString(draft.DisplayText())
	sb.WriteString("\n\nShall I add it to your calendar?")

	sent, err := h.sendKeyboard(bot, message.Chat.ID, sb.String(), keyboard)
	if err != nil {
		return fmt.Errorf("send confirmation message: %w", err)
	}

	replaced := h.svc.StorePending(message.From.ID, message.Chat.ID, sent.MessageID, draft)
	if replaced != nil {
		// Warn-and-replace: close the stale confirmation so its buttons
		// cannot fire, and tell the user what happened. A failed edit leaves
		// live buttons behind, but their draft ID no longer matches the
		// pending entry, so they can only resolve to an expired notice.
		edit := tgbotapi.NewEditMessageText(replaced.ChatID, replaced.MessageID,
			fmt.Sprintf("♻️ Draft *%s* was replaced by a newer one.", replaced.Draft.Summary))
		edit.ParseMode = tgbotapi.ModeMarkdown
		if _, err := bot.Send(edit); err != nil {
			h.logger.WithFields(logrus.Fields{
				"chat_id":    replaced.ChatID,
				"message_id": replaced.MessageID,
				"error":      err,
			}).Warn("Failed to close superseded confirmation message")
		}

		if err := send(bot, message.Chat.ID, "ℹ️ Your previous unconfirmed draft was discarded."); err != nil {
			h.logger.WithError(err).Warn("Failed to send draft-replaced notice")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  message.From.ID,
		"draft_id": draft.ID,
		"summary":  draft.Summary,
	}).Info("Draft awaiting confirmation")

	return nil
}

func (h *FreeTextHandler) sendKeyboard(bot *tgbotapi.BotAPI, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	return bot.Send(msg)
}

func send(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
