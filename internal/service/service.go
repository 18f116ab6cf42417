package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"assistbot/internal/calendar"
	"assistbot/internal/intent"
	"assistbot/internal/models"
	"assistbot/internal/parser"
	"assistbot/internal/pending"
	"assistbot/internal/repository"
)

// Service is the assistant core. It owns the free-text pipeline (classify,
// resolve, extract, validate) and the confirmation state machine, and is
// independent of the chat transport that feeds it.
type Service struct {
	logger     *logrus.Logger
	Users      repository.UserRepository
	Classifier *intent.Classifier
	Resolver   *parser.Resolver
	Extractor  *parser.Extractor
	Calendar   calendar.API
	Pending    *pending.Store
	defaultLoc *time.Location
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	users repository.UserRepository,
	classifier *intent.Classifier,
	resolver *parser.Resolver,
	extractor *parser.Extractor,
	cal calendar.API,
	store *pending.Store,
	defaultLoc *time.Location,
) *Service {
	return &Service{
		logger:     logger,
		Users:      users,
		Classifier: classifier,
		Resolver:   resolver,
		Extractor:  extractor,
		Calendar:   cal,
		Pending:    store,
		defaultLoc: defaultLoc,
	}
}

// EnsureUser retrieves an existing user by Telegram ID, or creates a new one
// if not found. If the user already exists but their profile information has
// changed (username, first name, last name), it updates the record.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	user, err := s.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user (telegram_id=%d): %w", telegramID, err)
	}
	if user == nil {
		now := time.Now()
		user = &models.User{
			TelegramID:       telegramID,
			TelegramUsername: username,
			FirstName:        firstName,
			LastName:         lastName,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		user, err = s.Users.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.Infof("Created new user: %s (telegram_id=%d)", user.DisplayName(), telegramID)
		return user, nil
	}

	needsUpdate := false
	if user.TelegramUsername != username {
		user.TelegramUsername = username
		needsUpdate = true
	}
	if user.FirstName != firstName {
		user.FirstName = firstName
		needsUpdate = true
	}
	if user.LastName != lastName {
		user.LastName = lastName
		needsUpdate = true
	}

	if needsUpdate {
		user.UpdatedAt = time.Now()
		user, err = s.Users.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user %d: %w", user.ID, err)
		}
		s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), telegramID)
	}

	return user, nil
}

// SetUserTimezone validates and stores the user's preferred IANA timezone.
func (s *Service) SetUserTimezone(ctx context.Context, telegramID int64, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	return s.Users.SetTimezone(ctx, telegramID, timezone)
}

// UserLocation resolves the timezone all dates and times are interpreted in
// for this user.
func (s *Service) UserLocation(user *models.User) *time.Location {
	if user == nil {
		return s.defaultLoc
	}
	return user.Location(s.defaultLoc)
}

// QueryResult carries a resolved range and the events found inside it.
type QueryResult struct {
	Range  models.TimeRange
	Events []*models.CalendarEvent
}

// QuerySchedule resolves a time phrase and reads the calendar for it.
func (s *Service) QuerySchedule(ctx context.Context, user *models.User, expression string) (*QueryResult, error) {
	loc := s.UserLocation(user)

	tr, err := s.Resolver.Resolve(ctx, expression, loc, time.Now())
	if err != nil {
		return nil, err
	}

	if problems := parser.ValidateRange(tr); len(problems) > 0 {
		return nil, &parser.ValidationError{Problems: problems}
	}

	events, err := s.Calendar.ListEvents(ctx, tr.Start, tr.End, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return &QueryResult{Range: tr, Events: events}, nil
}

// PrepareDraft extracts a draft from free text and validates it. A draft is
// only returned when the validator found nothing to complain about; problems
// come back as a ValidationError so the caller can ask for clarification.
func (s *Service) PrepareDraft(ctx context.Context, user *models.User, text string) (*models.EventDraft, error) {
	loc := s.UserLocation(user)
	now := time.Now()

	draft, err := s.Extractor.Extract(ctx, text, loc, now)
	if err != nil {
		return nil, err
	}

	if problems := parser.ValidateDraft(draft, now, loc); len(problems) > 0 {
		return nil, &parser.ValidationError{Problems: problems}
	}

	return draft, nil
}

// StorePending moves a draft into AWAITING_CONFIRMATION for the user. The
// returned entry is the previous unresolved confirmation when one was
// replaced, so the caller can warn the user and close its message.
func (s *Service) StorePending(userID, chatID int64, messageID int, draft *models.EventDraft) *models.PendingConfirmation {
	return s.Pending.Put(&models.PendingConfirmation{
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
		Draft:     draft,
		CreatedAt: time.Now(),
	})
}
