package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *Calendar Assistant Help*

*Creating events:*
Describe the event in plain language, e.g.
• _"Team meeting tomorrow at 2pm"_
• _"Dentist next Tuesday morning"_
I'll show you a draft with ✅ / ❌ buttons. Nothing reaches your calendar until you confirm, and a draft that sits unconfirmed for 10 minutes expires.

*Asking about your schedule:*
Ask naturally, e.g.
• _"What are my plans this weekend?"_
• _"Do I have any events on Friday?"_

*Commands:*
• /today - Today's schedule
• /week - This week's schedule
• /agenda <phrase> - Schedule for a time phrase ("next week", "tomorrow", ...)
• /timezone <zone> - Set your IANA timezone (e.g. America/New_York)
• /help - This message

_Time phrases like "today", "tomorrow" or "this weekend" are answered instantly; anything else takes a moment while I think._`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
