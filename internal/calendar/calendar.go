package calendar

import (
	"context"
	"errors"
	"time"

	"assistbot/internal/models"
)

// Service faults reported by a calendar backend. Callers branch with
// errors.Is; everything else is an opaque wrapped error.
var (
	ErrAuth        = errors.New("calendar authorization failed")
	ErrNotFound    = errors.New("calendar not found")
	ErrRateLimited = errors.New("calendar rate limit exceeded")
)

// API is the narrow read/write contract the assistant depends on. Recurring
// events are pre-expanded into individual instances and listings are sorted
// ascending by start time.
type API interface {
	ListEvents(ctx context.Context, start, end time.Time, maxResults int) ([]*models.CalendarEvent, error)
	CreateEvent(ctx context.Context, draft *models.EventDraft, loc *time.Location) (*models.CommittedEvent, error)
}
