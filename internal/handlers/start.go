package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"assistbot/internal/service"
)

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{svc: svc, logger: logger}
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if _, err := h.svc.EnsureUser(context.Background(), message.From.ID,
		message.From.UserName, message.From.FirstName, message.From.LastName); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	welcomeText := `👋 *Hi! I'm your calendar assistant.*

Just talk to me in plain language:

• _"Lunch with Sam on Friday at noon"_ — I'll draft the event and ask you to confirm it before it goes into your calendar.
• _"What's on my calendar tomorrow?"_ — I'll look it up and tell you.

*Commands:*
• /today - Today's schedule
• /week - This week's schedule
• /agenda <phrase> - Schedule for any time phrase
• /timezone <zone> - Set your timezone (e.g. Europe/Berlin)
• /help - Full help

Try telling me about your next meeting!`

	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent start message")

	return nil
}
