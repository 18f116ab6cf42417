package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"assistbot/internal/ai"
	"assistbot/internal/calendar"
	"assistbot/internal/config"
	"assistbot/internal/handlers"
	"assistbot/internal/intent"
	"assistbot/internal/metrics"
	"assistbot/internal/models"
	"assistbot/internal/parser"
	"assistbot/internal/pending"
	"assistbot/internal/repository/postgres"
	"assistbot/internal/service"
	"assistbot/internal/telegram"
	"assistbot/pkg/logger"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "assistbot",
		Usage: "Telegram assistant that turns free text into calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

// authCommand performs the Google OAuth code flow and stores the token the
// google calendar backend needs. Run it once before the first `run`.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Google and store the calendar API token.",
		Action: func(c *cli.Context) error {
			clientID := os.Getenv("GOOGLE_CLIENT_ID")
			clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
			}

			oauthCfg := calendar.OAuthConfig(clientID, clientSecret)

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code:\n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := calendar.ExchangeAuthCode(c.Context, oauthCfg, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := calendar.SaveToken(token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Successfully authenticated and saved token.")
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Start the bot.",
		Action: func(c *cli.Context) error { return run() },
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting assistbot...")

	defaultLoc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate("migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepo := postgres.NewUserRepository(db.DB)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Collaborators
	generator := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, ai.RetryPolicy{
		MaxAttempts: cfg.AIMaxAttempts,
		BaseDelay:   cfg.AIBaseDelay,
	}, l)

	var cal calendar.API
	switch cfg.CalendarBackend {
	case "caldav":
		cal, err = calendar.NewCalDAVClient(l, cfg.CalDAVEndpoint,
			cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendar)
	default:
		cal, err = calendar.NewGoogleClient(ctx, l,
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCalendarID)
	}
	if err != nil {
		return fmt.Errorf("failed to create calendar client (%s): %w", cfg.CalendarBackend, err)
	}

	// Core
	store := pending.NewStore(cfg.PendingTTL, l)
	defer store.Clear()

	svc := service.New(l, userRepo,
		intent.NewClassifier(intent.DefaultQueryKeywords),
		parser.NewResolver(generator, l),
		parser.NewExtractor(generator, l),
		cal, store, defaultLoc,
	)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	bot.RegisterCommand("start", handlers.NewStartHandler(svc, l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))
	bot.RegisterCommand("today", handlers.NewFixedAgendaHandler(svc, l, "today"))
	bot.RegisterCommand("week", handlers.NewFixedAgendaHandler(svc, l, "this week"))
	bot.RegisterCommand("agenda", handlers.NewAgendaHandler(svc, l))
	bot.RegisterCommand("timezone", handlers.NewTimezoneHandler(svc, l))

	bot.RegisterText(handlers.NewFreeTextHandler(svc, l))
	bot.RegisterCallback(handlers.CallbackPrefix, handlers.NewConfirmHandler(svc, l))

	// Expire stale confirmations and close their messages.
	go store.StartJanitor(ctx, func(p *models.PendingConfirmation) {
		if err := bot.EditMessage(p.ChatID, p.MessageID,
			"⌛ This confirmation expired. Please describe the event again."); err != nil {
			l.Errorf("Failed to close expired confirmation: %v", err)
		}
	})

	// Metrics and health endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: mux,
	}

	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	go func() {
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
		}
	}()

	l.Info("assistbot started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")
	httpServer.Close()

	l.Info("assistbot stopped")
	return nil
}
