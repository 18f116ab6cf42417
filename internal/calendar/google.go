package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"assistbot/internal/models"
)

const tokenFile = "token.json"

// GoogleClient implements API against the Google Calendar v3 service.
type GoogleClient struct {
	service    *gcal.Service
	calendarID string
	logger     *logrus.Logger
}

// NewGoogleClient creates an authenticated Google Calendar client. The OAuth
// token must already exist in token.json; run the auth command first.
func NewGoogleClient(ctx context.Context, logger *logrus.Logger, clientID, clientSecret, calendarID string) (*GoogleClient, error) {
	config := OAuthConfig(clientID, clientSecret)

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load OAuth token: %w (run the 'auth' command first)", err)
	}

	client := config.Client(ctx, token)
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleClient{service: service, calendarID: calendarID, logger: logger}, nil
}

// ListEvents fetches events between start and end, recurring instances
// expanded, sorted ascending by start time.
func (c *GoogleClient) ListEvents(ctx context.Context, start, end time.Time, maxResults int) ([]*models.CalendarEvent, error) {
	call := c.service.Events.List(c.calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		OrderBy("startTime")
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}

	events, err := call.Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}

	out := make([]*models.CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		out = append(out, toProjection(item))
	}

	c.logger.WithFields(logrus.Fields{
		"calendar": c.calendarID,
		"count":    len(out),
	}).Debug("Fetched events from Google Calendar")

	return out, nil
}

// CreateEvent writes a confirmed draft to the calendar and echoes the result.
func (c *GoogleClient) CreateEvent(ctx context.Context, draft *models.EventDraft, loc *time.Location) (*models.CommittedEvent, error) {
	start, err := draft.StartsAt(loc)
	if err != nil {
		return nil, fmt.Errorf("draft has unusable start: %w", err)
	}
	end, err := draft.EndsAt(loc)
	if err != nil {
		return nil, fmt.Errorf("draft has unusable end: %w", err)
	}

	event := &gcal.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}

	c.logger.WithFields(logrus.Fields{
		"calendar": c.calendarID,
		"event_id": created.Id,
		"summary":  draft.Summary,
	}).Info("Created calendar event")

	return &models.CommittedEvent{
		ID:      created.Id,
		Summary: draft.Summary,
		Start:   start,
		End:     end,
		Link:    created.HtmlLink,
	}, nil
}

// toProjection converts a Google event into the internal read-only model.
func toProjection(item *gcal.Event) *models.CalendarEvent {
	e := &models.CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Link:        item.HtmlLink,
	}

	if item.Start != nil {
		if item.Start.DateTime != "" {
			e.StartTime, _ = time.Parse(time.RFC3339, item.Start.DateTime)
		} else if item.Start.Date != "" {
			e.AllDay = true
			e.StartTime, _ = time.Parse("2006-01-02", item.Start.Date)
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			e.EndTime, _ = time.Parse(time.RFC3339, item.End.DateTime)
		} else if item.End.Date != "" {
			e.EndTime, _ = time.Parse("2006-01-02", item.End.Date)
		}
	}

	return e
}

// mapGoogleError translates googleapi status codes into the domain faults.
func mapGoogleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("calendar request failed: %w", err)
	}
}

// OAuthConfig returns the OAuth2 config for the desktop-app code flow.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// ExchangeAuthCode trades an authorization code for a token.
func ExchangeAuthCode(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken writes a token to the default token file.
func SaveToken(token *oauth2.Token) error {
	f, err := os.Create(tokenFile)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
