package parser

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"assistbot/internal/models"
)

// Resolver converts a time phrase into concrete query bounds. Common phrases
// are matched against a fixed shortcut table and resolved without touching
// the generator; everything else falls back to an AI call.
type Resolver struct {
	gen    Generator
	logger *logrus.Logger
}

// NewResolver creates a Resolver backed by the given generator.
func NewResolver(gen Generator, logger *logrus.Logger) *Resolver {
	return &Resolver{gen: gen, logger: logger}
}

type shortcutFunc func(now time.Time, loc *time.Location) (start, end time.Time, label string)

// The shortcut table takes priority over the generator even if the generator
// might disagree; resolving "tomorrow" must never cost a network call.
var shortcuts = map[string]shortcutFunc{
	"today": func(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
		return dayStart(now, 0, loc), dayEnd(now, 0, loc), "today"
	},
	"tomorrow": func(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
		return dayStart(now, 1, loc), dayEnd(now, 1, loc), "tomorrow"
	},
	"yesterday": func(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
		return dayStart(now, -1, loc), dayEnd(now, -1, loc), "yesterday"
	},
	"week":      thisWeek,
	"this week": thisWeek,
	"next week": func(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
		monday := -mondayOffset(now) + 7
		return dayStart(now, monday, loc), dayEnd(now, monday+6, loc), "next week"
	},
	"this weekend": func(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
		// Next occurring Saturday; today counts when today is Saturday.
		toSaturday := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		return dayStart(now, toSaturday, loc), dayEnd(now, toSaturday+1, loc), "this weekend"
	},
}

func thisWeek(now time.Time, loc *time.Location) (time.Time, time.Time, string) {
	monday := -mondayOffset(now)
	return dayStart(now, monday, loc), dayEnd(now, monday+6, loc), "this week"
}

// mondayOffset returns how many days now is past the current week's Monday.
func mondayOffset(now time.Time) int {
	return (int(now.Weekday()) + 6) % 7
}

func dayStart(now time.Time, days int, loc *time.Location) time.Time {
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func dayEnd(now time.Time, days int, loc *time.Location) time.Time {
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc)
}

type rangePayload struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
}

// Resolve turns expression into a TimeRange relative to now in loc.
func (r *Resolver) Resolve(ctx context.Context, expression string, loc *time.Location, now time.Time) (models.TimeRange, error) {
	normalized := strings.ToLower(strings.TrimSpace(expression))

	if fn, ok := shortcuts[normalized]; ok {
		start, end, label := fn(now.In(loc), loc)
		return models.TimeRange{
			Start:       start,
			End:         end,
			Description: label,
			Confidence:  models.ConfidenceHigh,
		}, nil
	}

	return r.resolveWithGenerator(ctx, expression, loc, now)
}

func (r *Resolver) resolveWithGenerator(ctx context.Context, expression string, loc *time.Location, now time.Time) (models.TimeRange, error) {
	raw, err := r.gen.GenerateStructured(ctx, timeRangePrompt(expression, now.In(loc)))
	if err != nil {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "generator failed", Err: err}
	}

	var payload rangePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "unexpected answer shape", Err: err}
	}

	if payload.StartDate == "" || payload.EndDate == "" {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "no date range in answer"}
	}
	if payload.StartTime == "" {
		payload.StartTime = "00:00"
	}
	if payload.EndTime == "" {
		payload.EndTime = "23:59"
	}

	start, err := time.ParseInLocation("2006-01-02T15:04", payload.StartDate+"T"+payload.StartTime, loc)
	if err != nil {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "bad start in answer", Err: err}
	}
	end, err := time.ParseInLocation("2006-01-02T15:04", payload.EndDate+"T"+payload.EndTime, loc)
	if err != nil {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "bad end in answer", Err: err}
	}
	if end.Before(start) {
		return models.TimeRange{}, &ParseError{Input: expression, Reason: "range ends before it starts"}
	}

	desc := payload.Description
	if desc == "" {
		desc = expression
	}

	r.logger.WithFields(logrus.Fields{
		"expression": expression,
		"start":      start,
		"end":        end,
	}).Debug("Resolved time range via generator")

	return models.TimeRange{
		Start:       start,
		End:         end,
		Description: desc,
		Confidence:  models.ParseConfidence(payload.Confidence),
	}, nil
}
