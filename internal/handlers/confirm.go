package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"assistbot/internal/service"
)

// ConfirmHandler receives the approve/reject button presses and drives the
// confirmation state machine. The transport work here is thin on purpose:
// all decision logic lives in service.Resolve.
type ConfirmHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewConfirmHandler creates the callback handler for draft confirmations.
func NewConfirmHandler(svc *service.Service, logger *logrus.Logger) *ConfirmHandler {
	return &ConfirmHandler{svc: svc, logger: logger}
}

// HandleCallback processes a "draft:" callback. data is the payload with the
// prefix stripped: "confirm:<draftID>" or "cancel:<draftID>".
func (h *ConfirmHandler) HandleCallback(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, data string) error {
	ctx := context.Background()

	var decision service.Decision
	var draftID string
	switch {
	case strings.HasPrefix(data, "confirm:"):
		decision = service.DecisionConfirm
		draftID = strings.TrimPrefix(data, "confirm:")
	case strings.HasPrefix(data, "cancel:"):
		decision = service.DecisionCancel
		draftID = strings.TrimPrefix(data, "cancel:")
	default:
		return fmt.Errorf("unrecognized callback payload %q", data)
	}

	// The draft ID travels into the resolution so a button from a superseded
	// confirmation message cannot resolve the draft that replaced it.
	resolution := h.svc.Resolve(ctx, query.From.ID, draftID, decision)

	text := h.outcomeText(resolution)

	// Edit the confirmation message in place so the buttons disappear.
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	if resolution.Pending != nil {
		chatID = resolution.Pending.ChatID
		messageID = resolution.Pending.MessageID
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(edit); err != nil {
		return fmt.Errorf("failed to edit confirmation message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  query.From.ID,
		"decision": decision,
		"outcome":  resolution.Outcome,
	}).Info("Resolved confirmation")

	return nil
}

func (h *ConfirmHandler) outcomeText(r *service.Resolution) string {
	switch r.Outcome {
	case service.OutcomeCommitted:
		text := fmt.Sprintf("✅ *%s* is in your calendar.\n📆 %s – %s",
			r.Committed.Summary,
			r.Committed.Start.Format("Mon, 02 Jan 15:04"),
			r.Committed.End.Format("15:04"))
		if r.Committed.Link != "" {
			text += fmt.Sprintf("\n🔗 [Open event](%s)", r.Committed.Link)
		}
		return text
	case service.OutcomeCancelled:
		return "🗑 Okay, I discarded that draft."
	case service.OutcomeFailed:
		if reply, ok := explainError(r.Err); ok {
			return reply + "\n\nThe draft was discarded; please describe the event again."
		}
		return "❌ I couldn't save the event to your calendar. The draft was discarded; please describe the event again."
	default:
		return "⌛ That confirmation has expired. Please describe the event again."
	}
}
