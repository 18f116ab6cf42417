package parser

import (
	"fmt"
	"time"
)

// eventPrompt builds the prompt that turns free text into a structured event.
// The defaulting policy (1-hour duration, time-of-day heuristics) lives here,
// in the prompt, and is not enforced in code.
func eventPrompt(text string, now time.Time) string {
	return fmt.Sprintf(`Extract a calendar event from the user's message.

Current date/time: %s (%s)

User message: "%s"

Respond with ONLY a JSON object (no markdown, no explanation):
{
  "summary": "short event title",
  "description": "longer description, or repeat the summary",
  "date": "YYYY-MM-DD",
  "startTime": "HH:MM",
  "endTime": "HH:MM",
  "confidence": "high|medium|low",
  "ambiguities": ["anything that was unclear"]
}

Rules:
- Interpret relative dates ("tomorrow", "next Friday") against the current date/time.
- If no duration is given, make the event 1 hour long.
- If only a part of day is given: morning means 09:00, afternoon means 14:00, evening means 19:00.
- Times are 24-hour local wall-clock times.
- confidence reflects how sure you are about the date and time.
- List every guess you had to make in ambiguities; use [] when nothing was unclear.`,
		now.Format("2006-01-02 15:04"), now.Weekday(), text)
}

// timeRangePrompt builds the prompt that turns a time phrase into query bounds.
func timeRangePrompt(expression string, now time.Time) string {
	return fmt.Sprintf(`Convert the user's time phrase into a concrete date range.

Current date/time: %s (%s)

Time phrase: "%s"

Respond with ONLY a JSON object (no markdown, no explanation):
{
  "startDate": "YYYY-MM-DD",
  "endDate": "YYYY-MM-DD",
  "startTime": "HH:MM",
  "endTime": "HH:MM",
  "confidence": "high|medium|low",
  "description": "human readable label for the range"
}

Rules:
- startDate and endDate are required.
- Default startTime to "00:00" and endTime to "23:59" unless the phrase says otherwise.
- Weeks start on Monday and end on Sunday.
- Interpret everything relative to the current date/time.`,
		now.Format("2006-01-02 15:04"), now.Weekday(), expression)
}
