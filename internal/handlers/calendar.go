package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"assistbot/internal/service"
)

// ---------------------------------------------------------------------------
// AgendaHandler – /agenda <time phrase>, /today, /week
// ---------------------------------------------------------------------------

// AgendaHandler resolves a time phrase and renders the matching slice of the
// calendar. The same handler backs /today and /week via a fixed phrase.
type AgendaHandler struct {
	svc    *service.Service
	logger *logrus.Logger
	phrase string // fixed phrase; empty means take it from the arguments
}

// NewAgendaHandler creates the /agenda handler.
func NewAgendaHandler(svc *service.Service, logger *logrus.Logger) *AgendaHandler {
	return &AgendaHandler{svc: svc, logger: logger}
}

// NewFixedAgendaHandler creates a handler bound to one phrase, used for
// /today and /week.
func NewFixedAgendaHandler(svc *service.Service, logger *logrus.Logger, phrase string) *AgendaHandler {
	return &AgendaHandler{svc: svc, logger: logger, phrase: phrase}
}

// Handle processes the command.
func (h *AgendaHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	phrase := h.phrase
	if phrase == "" {
		if len(args) == 0 {
			return send(bot, message.Chat.ID,
				"❌ Tell me which period you mean.\nExample: `/agenda next week`")
		}
		phrase = strings.Join(args, " ")
	}

	user, err := h.svc.EnsureUser(ctx, message.From.ID,
		message.From.UserName, message.From.FirstName, message.From.LastName)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	result, err := h.svc.QuerySchedule(ctx, user, phrase)
	if err != nil {
		if reply, ok := explainError(err); ok {
			return send(bot, message.Chat.ID, reply)
		}
		return fmt.Errorf("query schedule: %w", err)
	}

	if err := send(bot, message.Chat.ID, formatSchedule(result, h.svc.UserLocation(user))); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
		"phrase":  phrase,
		"count":   len(result.Events),
	}).Info("Rendered schedule")

	return nil
}

// ---------------------------------------------------------------------------
// TimezoneHandler – /timezone <IANA zone>
// ---------------------------------------------------------------------------

// TimezoneHandler stores the user's preferred timezone.
type TimezoneHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTimezoneHandler creates the /timezone handler.
func NewTimezoneHandler(svc *service.Service, logger *logrus.Logger) *TimezoneHandler {
	return &TimezoneHandler{svc: svc, logger: logger}
}

// Handle processes the /timezone command.
func (h *TimezoneHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	user, err := h.svc.EnsureUser(ctx, message.From.ID,
		message.From.UserName, message.From.FirstName, message.From.LastName)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	if len(args) == 0 {
		current := user.Timezone
		if current == "" {
			current = h.svc.UserLocation(nil).String() + " (default)"
		}
		return send(bot, message.Chat.ID, fmt.Sprintf(
			"🌍 Your timezone is *%s*.\nChange it with `/timezone Europe/Berlin`.", current))
	}

	zone := args[0]
	if err := h.svc.SetUserTimezone(ctx, message.From.ID, zone); err != nil {
		return send(bot, message.Chat.ID, fmt.Sprintf(
			"❌ I don't know the timezone `%s`. Use an IANA name like `America/New_York`.", zone))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  message.From.ID,
		"timezone": zone,
	}).Info("Updated user timezone")

	return send(bot, message.Chat.ID, fmt.Sprintf("✅ Timezone set to *%s*.", zone))
}
