package models

import "time"

// PendingConfirmation ties an unconfirmed draft to the Telegram user who
// produced it and to the chat message that shows the approve/reject keyboard,
// so the keyboard can be edited away once the draft is resolved.
type PendingConfirmation struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Draft     *EventDraft
	CreatedAt time.Time
}

// ExpiredAt reports whether the confirmation is older than ttl at instant now.
func (p *PendingConfirmation) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(p.CreatedAt) > ttl
}
