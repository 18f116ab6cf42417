package service

import (
	"context"
	"errors"
	"testing"
)

func TestResolveConfirmCommitsOnce(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	svc.StorePending(1, 1, 10, draftFor("a"))

	r := svc.Resolve(ctx, 1, "a", DecisionConfirm)
	if r.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %v, want committed (err=%v)", r.Outcome, r.Err)
	}
	if r.Committed == nil || r.Committed.Summary != "Team meeting" {
		t.Fatalf("committed = %+v", r.Committed)
	}
	if cal.createCalls != 1 {
		t.Errorf("calendar writes = %d, want 1", cal.createCalls)
	}

	// A duplicate signal settles as expired, never a second write.
	r = svc.Resolve(ctx, 1, "a", DecisionConfirm)
	if r.Outcome != OutcomeExpired {
		t.Errorf("duplicate resolve outcome = %v, want expired", r.Outcome)
	}
	if cal.createCalls != 1 {
		t.Errorf("calendar writes after duplicate = %d, want still 1", cal.createCalls)
	}
}

func TestResolveCancelWritesNothing(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	svc.StorePending(1, 1, 10, draftFor("a"))

	r := svc.Resolve(ctx, 1, "a", DecisionCancel)
	if r.Outcome != OutcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", r.Outcome)
	}
	if r.Pending == nil || r.Pending.Draft.ID != "a" {
		t.Errorf("pending = %+v, want the cancelled entry", r.Pending)
	}
	if cal.createCalls != 0 {
		t.Errorf("calendar writes = %d, want 0", cal.createCalls)
	}

	if r := svc.Resolve(ctx, 1, "a", DecisionConfirm); r.Outcome != OutcomeExpired {
		t.Errorf("confirm after cancel outcome = %v, want expired", r.Outcome)
	}
}

func TestResolveWithoutPendingIsExpired(t *testing.T) {
	svc, _ := newTestService(&stubGen{}, &fakeCalendar{})

	r := svc.Resolve(context.Background(), 7, "a", DecisionConfirm)
	if r.Outcome != OutcomeExpired {
		t.Errorf("outcome = %v, want expired", r.Outcome)
	}
	if r.Err != nil {
		t.Errorf("expired resolution carries an error: %v", r.Err)
	}
}

func TestResolveStaleDraftWritesNothing(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	// Draft a was replaced by b; only b's confirmation is live.
	svc.StorePending(1, 1, 10, draftFor("a"))
	svc.StorePending(1, 1, 11, draftFor("b"))

	// A confirm from the superseded message must not touch the calendar and
	// must leave b pending.
	r := svc.Resolve(ctx, 1, "a", DecisionConfirm)
	if r.Outcome != OutcomeExpired {
		t.Fatalf("stale confirm outcome = %v, want expired", r.Outcome)
	}
	if cal.createCalls != 0 {
		t.Fatalf("stale confirm wrote %d event(s) to the calendar, want 0", cal.createCalls)
	}

	// b is still resolvable, exactly once.
	r = svc.Resolve(ctx, 1, "b", DecisionConfirm)
	if r.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %v, want committed (err=%v)", r.Outcome, r.Err)
	}
	if cal.lastDraft == nil || cal.lastDraft.ID != "b" {
		t.Errorf("committed draft = %+v, want b", cal.lastDraft)
	}
	if cal.createCalls != 1 {
		t.Errorf("calendar writes = %d, want 1", cal.createCalls)
	}

	if r := svc.Resolve(ctx, 1, "b", DecisionConfirm); r.Outcome != OutcomeExpired {
		t.Errorf("replayed confirm outcome = %v, want expired", r.Outcome)
	}
	if cal.createCalls != 1 {
		t.Errorf("calendar writes after replay = %d, want still 1", cal.createCalls)
	}
}

func TestResolveStaleCancelLeavesPendingIntact(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	svc.StorePending(1, 1, 10, draftFor("a"))
	svc.StorePending(1, 1, 11, draftFor("b"))

	if r := svc.Resolve(ctx, 1, "a", DecisionCancel); r.Outcome != OutcomeExpired {
		t.Fatalf("stale cancel outcome = %v, want expired", r.Outcome)
	}

	// The live draft survived the stale cancel.
	r := svc.Resolve(ctx, 1, "b", DecisionConfirm)
	if r.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %v, want committed (err=%v)", r.Outcome, r.Err)
	}
}

func TestResolveWriteFailureDiscardsDraft(t *testing.T) {
	ctx := context.Background()
	writeErr := errors.New("backend down")
	cal := &fakeCalendar{createErr: writeErr}
	svc, _ := newTestService(&stubGen{}, cal)

	svc.StorePending(1, 1, 10, draftFor("a"))

	r := svc.Resolve(ctx, 1, "a", DecisionConfirm)
	if r.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", r.Outcome)
	}
	if !errors.Is(r.Err, writeErr) {
		t.Errorf("resolution error = %v, want the write failure", r.Err)
	}

	// The draft is gone; a retry must not find it.
	if r := svc.Resolve(ctx, 1, "a", DecisionConfirm); r.Outcome != OutcomeExpired {
		t.Errorf("retry outcome = %v, want expired", r.Outcome)
	}
	if cal.createCalls != 1 {
		t.Errorf("calendar writes = %d, want 1", cal.createCalls)
	}
}

func TestResolveUsesUserTimezone(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	if _, err := svc.EnsureUser(ctx, 1, "sam", "Sam", ""); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := svc.SetUserTimezone(ctx, 1, "Europe/Berlin"); err != nil {
		t.Fatalf("SetUserTimezone: %v", err)
	}

	svc.StorePending(1, 1, 10, draftFor("a"))

	r := svc.Resolve(ctx, 1, "a", DecisionConfirm)
	if r.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %v (err=%v)", r.Outcome, r.Err)
	}
	if cal.lastLoc == nil || cal.lastLoc.String() != "Europe/Berlin" {
		t.Errorf("commit location = %v, want Europe/Berlin", cal.lastLoc)
	}
}

func TestResolveUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, _ := newTestService(&stubGen{}, cal)

	svc.StorePending(1, 1, 10, draftFor("a"))
	svc.StorePending(2, 2, 20, draftFor("b"))

	if r := svc.Resolve(ctx, 1, "a", DecisionCancel); r.Outcome != OutcomeCancelled {
		t.Fatalf("user 1 outcome = %v", r.Outcome)
	}

	r := svc.Resolve(ctx, 2, "b", DecisionConfirm)
	if r.Outcome != OutcomeCommitted {
		t.Fatalf("user 2 outcome = %v (err=%v)", r.Outcome, r.Err)
	}
	if cal.lastDraft == nil || cal.lastDraft.ID != "b" {
		t.Errorf("committed draft = %+v, want user 2's draft b", cal.lastDraft)
	}
}
