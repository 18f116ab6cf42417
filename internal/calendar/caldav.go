package calendar

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assistbot/internal/models"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	username  string
	password  string
	transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("User-Agent", "assistbot/1.0")
	return t.transport.RoundTrip(req)
}

// CalDAVClient implements API against a CalDAV server (iCloud, Radicale, ...).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *logrus.Logger
	endpoint     string
	calendarURL  string
}

// NewCalDAVClient discovers the named calendar on the server and returns a
// client bound to it.
func NewCalDAVClient(logger *logrus.Logger, endpoint, username, password, calendarName string) (*CalDAVClient, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		username:  username,
		password:  password,
		transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
	}

	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar %q: %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.WithField("url", calendarURL).Info("Found CalDAV calendar")

	return c, nil
}

// ListEvents runs a calendar-query for VEVENTs between start and end and
// returns them sorted ascending by start time.
func (c *CalDAVClient) ListEvents(ctx context.Context, start, end time.Time, maxResults int) ([]*models.CalendarEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps:    []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath(), query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", err)
	}

	var out []*models.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			projection, err := c.fromICal(ev, start.Location())
			if err != nil {
				c.logger.WithError(err).Warn("Skipping unreadable CalDAV event")
				continue
			}
			out = append(out, projection)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}

	c.logger.WithField("count", len(out)).Debug("Fetched events from CalDAV calendar")
	return out, nil
}

// CreateEvent uploads a confirmed draft as a new VEVENT.
func (c *CalDAVClient) CreateEvent(ctx context.Context, draft *models.EventDraft, loc *time.Location) (*models.CommittedEvent, error) {
	start, err := draft.StartsAt(loc)
	if err != nil {
		return nil, fmt.Errorf("draft has unusable start: %w", err)
	}
	end, err := draft.EndsAt(loc)
	if err != nil {
		return nil, fmt.Errorf("draft has unusable end: %w", err)
	}

	uid := uuid.New().String()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, draft.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if draft.Description != "" {
		ve.Props.SetText(ical.PropDescription, draft.Description)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//assistbot//EN")
	cal.Children = append(cal.Children, ve)

	eventPath := path.Join(c.calendarPath(), fmt.Sprintf("%s.ics", uid))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish CalDAV upload: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"uid":     uid,
		"summary": draft.Summary,
	}).Info("Created CalDAV event")

	return &models.CommittedEvent{
		ID:      uid,
		Summary: draft.Summary,
		Start:   start,
		End:     end,
	}, nil
}

// fromICal converts a VEVENT into the internal read-only model.
func (c *CalDAVClient) fromICal(ev ical.Event, loc *time.Location) (*models.CalendarEvent, error) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("event has no usable start: %w", err)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		// Events without an explicit end render as one hour.
		end = start.Add(time.Hour)
	}

	summary, _ := ev.Props.Text(ical.PropSummary)
	description, _ := ev.Props.Text(ical.PropDescription)
	location, _ := ev.Props.Text(ical.PropLocation)
	uid, _ := ev.Props.Text(ical.PropUID)

	return &models.CalendarEvent{
		ID:          uid,
		Summary:     summary,
		Description: description,
		StartTime:   start,
		EndTime:     end,
		Location:    location,
	}, nil
}

// calendarPath returns the calendar URL relative to the endpoint, which is
// what the webdav/caldav clients expect.
func (c *CalDAVClient) calendarPath() string {
	return "/" + strings.TrimPrefix(strings.TrimPrefix(c.calendarURL, strings.TrimSuffix(c.endpoint, "/")), "/")
}

// findCalendar discovers the user's calendars and returns the URL of the one
// with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to find principal path: %v", ErrAuth, err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(c.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("%w: no calendar named %q", ErrNotFound, name)
}
