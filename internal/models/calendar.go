package models

import "time"

// CalendarEvent is a read-only projection of an event living in the external
// calendar service. Recurring events arrive pre-expanded into instances.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Link        string    `json:"link,omitempty"`
}

// IsOngoing returns true if the event is happening at instant now.
func (e *CalendarEvent) IsOngoing(now time.Time) bool {
	return now.After(e.StartTime) && now.Before(e.EndTime)
}

// CommittedEvent is the transient echo of a successful calendar write, kept
// only long enough to render the success message.
type CommittedEvent struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Link    string    `json:"link,omitempty"`
}
