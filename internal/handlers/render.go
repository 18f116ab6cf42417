package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"assistbot/internal/calendar"
	"assistbot/internal/parser"
	"assistbot/internal/service"
)

// formatSchedule renders a query result as a Markdown event list.
func formatSchedule(result *service.QueryResult, loc *time.Location) string {
	if len(result.Events) == 0 {
		return fmt.Sprintf("📅 *Nothing scheduled for %s.*", result.Range.Description)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *Your schedule for %s*\n\n", result.Range.Description)

	now := time.Now()
	for i, event := range result.Events {
		start := event.StartTime.In(loc)

		var when string
		if event.AllDay {
			when = start.Format("Mon, 02 Jan") + " (all day)"
		} else {
			when = start.Format("Mon, 02 Jan at 15:04")
		}

		status := "📆"
		if event.IsOngoing(now) {
			status = "▶️"
		}

		fmt.Fprintf(&sb, "%d. %s *%s*\n   📆 %s", i+1, status, event.Summary, when)
		if event.Location != "" {
			fmt.Fprintf(&sb, "\n   📍 %s", event.Location)
		}
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "_%d event(s)_", len(result.Events))
	return sb.String()
}

// explainError maps pipeline errors onto user-facing replies. The boolean
// reports whether the error was recovered into a reply; unrecovered errors
// bubble up to the router's generic failure message.
func explainError(err error) (string, bool) {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return "🤔 I couldn't work that out. Could you rephrase it, maybe with an explicit date or time?", true
	}

	var valErr *parser.ValidationError
	if errors.As(err, &valErr) {
		return fmt.Sprintf("⚠️ That didn't quite add up:\n• %s\n\nPlease try again with more detail.",
			strings.Join(valErr.Problems, "\n• ")), true
	}

	switch {
	case errors.Is(err, calendar.ErrAuth):
		return "🔒 I can't reach your calendar right now (authorization failed). Please check the calendar connection.", true
	case errors.Is(err, calendar.ErrRateLimited):
		return "⏳ The calendar service is throttling me. Please try again in a minute.", true
	case errors.Is(err, calendar.ErrNotFound):
		return "❓ I couldn't find the configured calendar.", true
	}

	return "", false
}
