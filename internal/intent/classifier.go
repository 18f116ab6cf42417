package intent

import "strings"

// Intent is what the user wants from a free-text message.
type Intent string

const (
	Query    Intent = "query"
	AddEvent Intent = "add_event"
)

// DefaultQueryKeywords is the phrase table that marks a message as a schedule
// question. Anything that matches none of them is treated as a new event.
var DefaultQueryKeywords = []string{
	"what",
	"show",
	"plans",
	"schedule",
	"calendar",
	"do i have",
	"any events",
}

// Classifier routes free text to query or event creation by keyword
// containment. It is a deliberately simple heuristic and will sometimes
// misclassify; the phrase table is injected so a richer classifier can
// replace it without touching call sites.
type Classifier struct {
	queryKeywords []string
}

// NewClassifier creates a Classifier over the given phrase table.
// Pass DefaultQueryKeywords for the stock behavior.
func NewClassifier(queryKeywords []string) *Classifier {
	lowered := make([]string, len(queryKeywords))
	for i, kw := range queryKeywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Classifier{queryKeywords: lowered}
}

// Classify returns Query when any keyword occurs in the lowercased text,
// AddEvent otherwise. No AI call, no learning.
func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(text)
	for _, kw := range c.queryKeywords {
		if strings.Contains(lowered, kw) {
			return Query
		}
	}
	return AddEvent
}
