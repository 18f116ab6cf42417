package models

import (
	"fmt"
	"strings"
	"time"
)

// Confidence expresses how sure the extraction was about a draft or range.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence normalizes a free-form confidence string coming back from
// the generator. Anything unrecognized is treated as medium.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// EventDraft is an unconfirmed calendar event extracted from free text.
// Date is a plain YYYY-MM-DD string and the times are HH:MM wall-clock
// strings; they are only combined into instants relative to a timezone.
type EventDraft struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Confidence  Confidence `json:"confidence"`
	Ambiguities []string   `json:"ambiguities,omitempty"`
}

// StartsAt combines Date and StartTime into an instant in loc.
func (d *EventDraft) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.StartTime, loc)
}

// EndsAt combines Date and EndTime into an instant in loc.
func (d *EventDraft) EndsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.EndTime, loc)
}

// AddAmbiguity appends a note about an unclear part of the draft.
func (d *EventDraft) AddAmbiguity(note string) {
	d.Ambiguities = append(d.Ambiguities, note)
}

// DisplayText renders the draft for the confirmation message.
func (d *EventDraft) DisplayText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n📆 %s, %s–%s", d.Summary, d.Date, d.StartTime, d.EndTime)
	if d.Description != "" && d.Description != d.Summary {
		fmt.Fprintf(&sb, "\n📝 %s", d.Description)
	}
	if len(d.Ambiguities) > 0 {
		sb.WriteString("\n\n⚠️ ")
		sb.WriteString(strings.Join(d.Ambiguities, "; "))
	}
	return sb.String()
}
