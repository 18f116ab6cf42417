package parser

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"assistbot/internal/models"
)

// Extractor turns a free-text event description into a structured draft.
type Extractor struct {
	gen    Generator
	logger *logrus.Logger
}

// NewExtractor creates an Extractor backed by the given generator.
func NewExtractor(gen Generator, logger *logrus.Logger) *Extractor {
	return &Extractor{gen: gen, logger: logger}
}

type draftPayload struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Confidence  string   `json:"confidence"`
	Ambiguities []string `json:"ambiguities"`
}

// Extract parses text into an EventDraft relative to now in loc.
// Returns ParseError when the generator answer is unusable and
// ValidationError when required fields are missing or end <= start.
func (e *Extractor) Extract(ctx context.Context, text string, loc *time.Location, now time.Time) (*models.EventDraft, error) {
	raw, err := e.gen.GenerateStructured(ctx, eventPrompt(text, now.In(loc)))
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "generator failed", Err: err}
	}

	var payload draftPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Input: text, Reason: "unexpected answer shape", Err: err}
	}

	var problems []string
	if strings.TrimSpace(payload.Summary) == "" {
		problems = append(problems, "missing event title")
	}
	if payload.Date == "" {
		problems = append(problems, "missing date")
	}
	if payload.StartTime == "" {
		problems = append(problems, "missing start time")
	}
	if payload.EndTime == "" {
		problems = append(problems, "missing end time")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	draft := &models.EventDraft{
		ID:          uuid.New().String(),
		Summary:     strings.TrimSpace(payload.Summary),
		Description: strings.TrimSpace(payload.Description),
		Date:        payload.Date,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
		Confidence:  models.ParseConfidence(payload.Confidence),
		Ambiguities: payload.Ambiguities,
	}
	if draft.Description == "" {
		draft.Description = draft.Summary
	}

	start, err := draft.StartsAt(loc)
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "unparseable date or start time", Err: err}
	}
	end, err := draft.EndsAt(loc)
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "unparseable end time", Err: err}
	}

	// End at or before start is never auto-corrected.
	if !end.After(start) {
		return nil, &ValidationError{Problems: []string{"event end must be after its start"}}
	}

	// A start in the past overrides whatever confidence the generator
	// reported; the user has to look at it.
	if start.Before(now) {
		draft.AddAmbiguity("date appears to be in the past")
		draft.Confidence = models.ConfidenceLow
	}

	e.logger.WithFields(logrus.Fields{
		"summary":    draft.Summary,
		"date":       draft.Date,
		"start":      draft.StartTime,
		"end":        draft.EndTime,
		"confidence": draft.Confidence,
	}).Debug("Extracted event draft")

	return draft, nil
}
