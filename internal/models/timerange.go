package models

import "time"

// TimeRange is a resolved pair of query bounds for a calendar read.
// End is inclusive for ranges produced from whole days (23:59:59).
type TimeRange struct {
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
