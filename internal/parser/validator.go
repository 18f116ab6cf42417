package parser

import (
	"regexp"
	"strings"
	"time"

	"assistbot/internal/models"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidateDraft checks a draft for internal consistency and returns a list of
// human-readable problems. It never fails loudly; callers decide whether a
// non-empty list blocks the operation.
func ValidateDraft(d *models.EventDraft, now time.Time, loc *time.Location) []string {
	var problems []string

	if strings.TrimSpace(d.Summary) == "" {
		problems = append(problems, "event title is empty")
	}

	dateOK := dateRe.MatchString(d.Date)
	if !dateOK {
		problems = append(problems, "date is not in YYYY-MM-DD form")
	} else if _, err := time.ParseInLocation("2006-01-02", d.Date, loc); err != nil {
		dateOK = false
		problems = append(problems, "date is not a real calendar date")
	}

	timesOK := true
	if !timeRe.MatchString(d.StartTime) {
		timesOK = false
		problems = append(problems, "start time is not in HH:MM form")
	}
	if !timeRe.MatchString(d.EndTime) {
		timesOK = false
		problems = append(problems, "end time is not in HH:MM form")
	}

	if dateOK && timesOK {
		start, errS := d.StartsAt(loc)
		end, errE := d.EndsAt(loc)
		switch {
		case errS != nil || errE != nil:
			problems = append(problems, "start or end time is not a valid wall-clock time")
		case !end.After(start):
			problems = append(problems, "event end must be after its start")
		}

		// One day of slack tolerates timezone-boundary noise.
		if errS == nil && start.Before(now.Add(-24*time.Hour)) {
			problems = append(problems, "event date is more than a day in the past")
		}
	}

	return problems
}

// ValidateRange checks resolved query bounds for consistency.
func ValidateRange(r models.TimeRange) []string {
	var problems []string
	if r.Start.IsZero() || r.End.IsZero() {
		problems = append(problems, "range is missing a bound")
	}
	if r.End.Before(r.Start) {
		problems = append(problems, "range ends before it starts")
	}
	return problems
}
