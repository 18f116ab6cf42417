package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"assistbot/internal/calendar"
	"assistbot/internal/intent"
	"assistbot/internal/models"
	"assistbot/internal/parser"
	"assistbot/internal/pending"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeUsers is an in-memory UserRepository keyed by Telegram ID.
type fakeUsers struct {
	byTelegramID map[int64]*models.User
	nextID       int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byTelegramID: make(map[int64]*models.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.nextID++
	u := *user
	u.ID = f.nextID
	f.byTelegramID[u.TelegramID] = &u
	return &u, nil
}

func (f *fakeUsers) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	u, ok := f.byTelegramID[telegramID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.byTelegramID {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	f.byTelegramID[u.TelegramID] = &u
	return &u, nil
}

func (f *fakeUsers) SetTimezone(ctx context.Context, telegramID int64, timezone string) error {
	u, ok := f.byTelegramID[telegramID]
	if !ok {
		return fmt.Errorf("user with telegram_id %d not found", telegramID)
	}
	u.Timezone = timezone
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error { return nil }

// fakeCalendar records writes and serves canned listings.
type fakeCalendar struct {
	events      []*models.CalendarEvent
	createErr   error
	createCalls int
	lastDraft   *models.EventDraft
	lastLoc     *time.Location
}

func (f *fakeCalendar) ListEvents(ctx context.Context, start, end time.Time, maxResults int) ([]*models.CalendarEvent, error) {
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, draft *models.EventDraft, loc *time.Location) (*models.CommittedEvent, error) {
	f.createCalls++
	f.lastDraft = draft
	f.lastLoc = loc
	if f.createErr != nil {
		return nil, f.createErr
	}
	start, _ := draft.StartsAt(loc)
	end, _ := draft.EndsAt(loc)
	return &models.CommittedEvent{
		ID:      "evt-1",
		Summary: draft.Summary,
		Start:   start,
		End:     end,
		Link:    "https://calendar.example/evt-1",
	}, nil
}

// stubGen serves one canned generator answer.
type stubGen struct {
	raw json.RawMessage
	err error
}

func (g *stubGen) GenerateStructured(ctx context.Context, prompt string) (json.RawMessage, error) {
	return g.raw, g.err
}

func newTestService(gen *stubGen, cal calendar.API) (*Service, *fakeUsers) {
	l := testLogger()
	users := newFakeUsers()
	svc := New(l, users,
		intent.NewClassifier(intent.DefaultQueryKeywords),
		parser.NewResolver(gen, l),
		parser.NewExtractor(gen, l),
		cal,
		pending.NewStore(10*time.Minute, l),
		time.UTC,
	)
	return svc, users
}

func draftFor(id string) *models.EventDraft {
	tomorrow := time.Now().AddDate(0, 0, 1)
	return &models.EventDraft{
		ID:        id,
		Summary:   "Team meeting",
		Date:      tomorrow.Format("2006-01-02"),
		StartTime: "14:00",
		EndTime:   "15:00",
	}
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestService(&stubGen{}, &fakeCalendar{})

	u, err := svc.EnsureUser(ctx, 100, "sam", "Sam", "Jones")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.ID == 0 {
		t.Error("created user has no ID")
	}

	// Same profile again must not duplicate anything.
	again, err := svc.EnsureUser(ctx, 100, "sam", "Sam", "Jones")
	if err != nil {
		t.Fatalf("EnsureUser (second call): %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("second EnsureUser returned ID %d, want %d", again.ID, u.ID)
	}
	if len(users.byTelegramID) != 1 {
		t.Errorf("users stored = %d, want 1", len(users.byTelegramID))
	}

	// A renamed profile is picked up.
	renamed, err := svc.EnsureUser(ctx, 100, "samj", "Sam", "Jones")
	if err != nil {
		t.Fatalf("EnsureUser (rename): %v", err)
	}
	if renamed.TelegramUsername != "samj" {
		t.Errorf("username = %q, want samj", renamed.TelegramUsername)
	}
}

func TestSetUserTimezone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&stubGen{}, &fakeCalendar{})

	if _, err := svc.EnsureUser(ctx, 100, "sam", "Sam", ""); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	if err := svc.SetUserTimezone(ctx, 100, "Europe/Berlin"); err != nil {
		t.Fatalf("SetUserTimezone: %v", err)
	}

	u, _ := svc.Users.GetByTelegramID(ctx, 100)
	if got := svc.UserLocation(u).String(); got != "Europe/Berlin" {
		t.Errorf("UserLocation = %q, want Europe/Berlin", got)
	}

	if err := svc.SetUserTimezone(ctx, 100, "Mars/Olympus_Mons"); err == nil {
		t.Error("bogus timezone was accepted")
	}
}

func TestQuerySchedule(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{events: []*models.CalendarEvent{
		{ID: "1", Summary: "Standup"},
	}}
	svc, _ := newTestService(&stubGen{err: errors.New("must not be called")}, cal)

	result, err := svc.QuerySchedule(ctx, nil, "today")
	if err != nil {
		t.Fatalf("QuerySchedule: %v", err)
	}
	if len(result.Events) != 1 || result.Events[0].Summary != "Standup" {
		t.Errorf("events = %v", result.Events)
	}
	if result.Range.Description != "today" {
		t.Errorf("range description = %q", result.Range.Description)
	}
}

func TestPrepareDraftEndToEnd(t *testing.T) {
	ctx := context.Background()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	gen := &stubGen{raw: json.RawMessage(fmt.Sprintf(`{
		"summary": "Team meeting", "date": "%s",
		"startTime": "14:00", "endTime": "15:00", "confidence": "high"
	}`, tomorrow))}
	svc, _ := newTestService(gen, &fakeCalendar{})

	draft, err := svc.PrepareDraft(ctx, nil, "Team meeting tomorrow at 2pm")
	if err != nil {
		t.Fatalf("PrepareDraft: %v", err)
	}
	if draft.Summary != "Team meeting" || draft.StartTime != "14:00" || draft.EndTime != "15:00" {
		t.Errorf("draft = %+v", draft)
	}
}

func TestPrepareDraftValidationFailure(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{raw: json.RawMessage(`{
		"summary": "Meeting", "date": "2020-01-01",
		"startTime": "14:00", "endTime": "15:00"
	}`)}
	svc, _ := newTestService(gen, &fakeCalendar{})

	_, err := svc.PrepareDraft(ctx, nil, "meeting in 2020")
	var verr *parser.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *parser.ValidationError", err)
	}
}

func TestStorePendingReportsReplacement(t *testing.T) {
	svc, _ := newTestService(&stubGen{}, &fakeCalendar{})

	if replaced := svc.StorePending(1, 1, 10, draftFor("a")); replaced != nil {
		t.Fatalf("first StorePending replaced %v", replaced)
	}
	replaced := svc.StorePending(1, 1, 11, draftFor("b"))
	if replaced == nil || replaced.Draft.ID != "a" {
		t.Fatalf("second StorePending replaced = %v, want draft a", replaced)
	}
}
