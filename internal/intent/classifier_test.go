package intent

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultQueryKeywords)

	tests := []struct {
		name string
		text string
		want Intent
	}{
		{
			name: "question about calendar",
			text: "What's on my calendar tomorrow?",
			want: Query,
		},
		{
			name: "event description",
			text: "Lunch with Sam Friday at noon",
			want: AddEvent,
		},
		{
			name: "show keyword",
			text: "Show me next week",
			want: Query,
		},
		{
			name: "plans keyword",
			text: "any plans this weekend",
			want: Query,
		},
		{
			name: "do i have phrase",
			text: "Do I have anything on Monday?",
			want: Query,
		},
		{
			name: "any events phrase",
			text: "ANY EVENTS today?",
			want: Query,
		},
		{
			name: "plain statement",
			text: "Dentist appointment next Tuesday morning",
			want: AddEvent,
		},
		{
			name: "empty text",
			text: "",
			want: AddEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomTable(t *testing.T) {
	c := NewClassifier([]string{"agenda"})

	if got := c.Classify("what's my agenda"); got != Query {
		t.Errorf("custom keyword not matched: got %v", got)
	}
	// The default keywords must not leak into a custom table.
	if got := c.Classify("show me everything"); got != AddEvent {
		t.Errorf("default keyword leaked into custom table: got %v", got)
	}
}
