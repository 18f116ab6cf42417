package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Router handles message routing: slash commands go to their registered
// handler, any other text goes to the free-text handler, and callback
// queries are dispatched by data prefix.
type Router struct {
	logger      *logrus.Logger
	handlers    map[string]CommandHandler
	textHandler CommandHandler
	callbacks   map[string]CallbackHandler
}

// CommandHandler defines the interface for command and free-text handlers.
// For free text, args carries the whole message as a single element.
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// CallbackHandler defines the interface for callback-query handlers.
// data is the callback payload with the registered prefix stripped.
type CallbackHandler interface {
	HandleCallback(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery, data string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:    logger,
		handlers:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterText registers the free-text handler
func (r *Router) RegisterText(handler CommandHandler) {
	r.textHandler = handler
}

// RegisterCallback registers a callback handler under a data prefix
func (r *Router) RegisterCallback(prefix string, handler CallbackHandler) {
	r.callbacks[prefix] = handler
	r.logger.Debugf("Registered callback prefix: %s", prefix)
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"username":   message.From.UserName,
		"message_id": message.MessageID,
		"text":       message.Text,
	}).Info("Received message")

	// Only process text messages
	if message.Text == "" {
		return
	}

	if !message.IsCommand() {
		if r.textHandler == nil {
			return
		}
		if err := r.textHandler.Handle(bot, message, []string{message.Text}); err != nil {
			r.logger.WithFields(logrus.Fields{
				"chat_id": message.Chat.ID,
				"user_id": message.From.ID,
				"error":   err,
			}).Error("Free-text handler failed")

			errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ Something went wrong while handling your message. Please try again.")
			bot.Send(errorMsg)
		}
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	if handler, exists := r.handlers[command]; exists {
		if err := handler.Handle(bot, message, args); err != nil {
			r.logger.WithFields(logrus.Fields{
				"command": command,
				"chat_id": message.Chat.ID,
				"user_id": message.From.ID,
				"error":   err,
			}).Error("Command handler failed")

			errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ An error occurred while processing your command. Please try again.")
			bot.Send(errorMsg)
		}
	} else {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Unknown command")

		unknownMsg := tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands.")
		bot.Send(unknownMsg)
	}
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery) {
	r.logger.WithFields(logrus.Fields{
		"callback_id": query.ID,
		"user_id":     query.From.ID,
		"data":        query.Data,
	}).Info("Received callback query")

	// Answer the callback query to remove loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	bot.Request(callback)

	for prefix, handler := range r.callbacks {
		if strings.HasPrefix(query.Data, prefix) {
			data := strings.TrimPrefix(query.Data, prefix)
			if err := handler.HandleCallback(bot, query, data); err != nil {
				r.logger.WithFields(logrus.Fields{
					"user_id": query.From.ID,
					"data":    query.Data,
					"error":   err,
				}).Error("Callback handler failed")
			}
			return
		}
	}

	r.logger.WithField("data", query.Data).Warn("No handler for callback query")
}
