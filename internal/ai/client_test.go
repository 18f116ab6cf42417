package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(b)
}

func newTestClient(srv *httptest.Server, maxAttempts int) *Client {
	c := NewClient("test-key", "test-model", RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
	}, testLogger())
	c.SetBaseURL(srv.URL)
	return c
}

func TestGenerateStructured(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.String())
		}
		io.WriteString(w, candidateBody(`{"summary": "Team meeting"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, 3)
	raw, err := c.GenerateStructured(context.Background(), "extract")
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("answer is not JSON: %v", err)
	}
	if got["summary"] != "Team meeting" {
		t.Errorf("answer = %v", got)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
}

func TestGenerateStructuredStripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, candidateBody("```json\n{\"a\": 1}\n```"))
	}))
	defer srv.Close()

	c := newTestClient(srv, 1)
	raw, err := c.GenerateStructured(context.Background(), "extract")
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if string(raw) != `{"a": 1}` {
		t.Errorf("raw = %q", raw)
	}
}

func TestGenerateStructuredRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, candidateBody(`{"ok": true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, 5)
	raw, err := c.GenerateStructured(context.Background(), "extract")
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if string(raw) != `{"ok": true}` {
		t.Errorf("raw = %q", raw)
	}
	if hits.Load() != 3 {
		t.Errorf("requests = %d, want 3", hits.Load())
	}
}

func TestGenerateStructuredExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv, 3)
	_, err := c.GenerateStructured(context.Background(), "extract")
	if !errors.Is(err, ErrGenerator) {
		t.Fatalf("error = %v, want ErrGenerator", err)
	}
	if hits.Load() != 3 {
		t.Errorf("requests = %d, want the full retry budget of 3", hits.Load())
	}
}

func TestGenerateStructuredMalformedAnswerIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, candidateBody("this is not json"))
	}))
	defer srv.Close()

	c := newTestClient(srv, 5)
	_, err := c.GenerateStructured(context.Background(), "extract")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1 (no retry on malformed answers)", hits.Load())
	}
}

func TestGenerateStructuredEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	c := newTestClient(srv, 2)
	_, err := c.GenerateStructured(context.Background(), "extract")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestGenerateStructuredHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Hour, // the backoff wait must be interruptible
	}, testLogger())
	c.SetBaseURL(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GenerateStructured(ctx, "extract")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context deadline", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding whitespace", in: "  \n{\"a\": 1}\n  ", want: `{"a": 1}`},
		{name: "single line fence", in: "```{\"a\": 1}```", want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
