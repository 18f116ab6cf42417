package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"assistbot/internal/metrics"
	"assistbot/internal/models"
)

// Decision is the user's answer to a pending confirmation.
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionCancel  Decision = "cancel"
)

// Outcome is the terminal state a resolution ended in.
type Outcome string

const (
	// OutcomeCommitted: the draft was written to the calendar.
	OutcomeCommitted Outcome = "committed"
	// OutcomeCancelled: the draft was discarded on the user's request.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeExpired: there was no pending entry for the user; the signal
	// is a replay or arrived after expiry. Informational, never an error.
	OutcomeExpired Outcome = "expired"
	// OutcomeFailed: the calendar write failed; the draft is discarded and
	// the user has to restart event creation.
	OutcomeFailed Outcome = "failed"
)

// Resolution is the result of driving a pending confirmation to a terminal
// state.
type Resolution struct {
	Outcome   Outcome
	Pending   *models.PendingConfirmation
	Committed *models.CommittedEvent
	Err       error
}

// Resolve drives the confirmation state machine for one user. The entry is
// atomically removed from the store before any side effect, so duplicate or
// racing signals for the same user settle on exactly one terminal state and
// the calendar write happens at most once. draftID must name the draft the
// decision was made for; a signal carrying a different ID comes from a
// superseded confirmation message and must not resolve the current entry, so
// it is pushed back untouched and the signal settles as expired. A decision
// for a user with no pending entry also resolves to OutcomeExpired.
func (s *Service) Resolve(ctx context.Context, userID int64, draftID string, decision Decision) *Resolution {
	p, ok := s.Pending.Take(userID)
	if !ok {
		metrics.Confirmations.WithLabelValues(string(OutcomeExpired)).Inc()
		return &Resolution{Outcome: OutcomeExpired}
	}

	if p.Draft.ID != draftID {
		s.Pending.Put(p)
		s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"draft_id": draftID,
		}).Info("Ignoring decision for a superseded draft")
		metrics.Confirmations.WithLabelValues(string(OutcomeExpired)).Inc()
		return &Resolution{Outcome: OutcomeExpired}
	}

	if decision == DecisionCancel {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"summary": p.Draft.Summary,
		}).Info("Draft cancelled")
		metrics.Confirmations.WithLabelValues(string(OutcomeCancelled)).Inc()
		return &Resolution{Outcome: OutcomeCancelled, Pending: p}
	}

	user, err := s.Users.GetByTelegramID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Warn("Falling back to default timezone for commit")
	}
	loc := s.UserLocation(user)

	committed, err := s.Calendar.CreateEvent(ctx, p.Draft, loc)
	if err != nil {
		// The draft is not re-queued; a retry could double-commit.
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"summary": p.Draft.Summary,
			"error":   err,
		}).Error("Calendar write failed, draft discarded")
		metrics.Confirmations.WithLabelValues(string(OutcomeFailed)).Inc()
		return &Resolution{Outcome: OutcomeFailed, Pending: p, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"event_id": committed.ID,
		"summary":  committed.Summary,
	}).Info("Draft committed to calendar")
	metrics.Confirmations.WithLabelValues(string(OutcomeCommitted)).Inc()

	return &Resolution{Outcome: OutcomeCommitted, Pending: p, Committed: committed}
}
