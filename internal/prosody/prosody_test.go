package prosody

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"voice-interviewer-go/internal/types"
)

const predictionsBody = `[{"results":{"predictions":[{"models":{"prosody":{"grouped_predictions":[{"predictions":[
	{"text":"love it","emotions":[{"name":"Joy","score":0.6},{"name":"Excitement","score":0.4},{"name":"Confusion","score":0.1},{"name":"Calmness","score":0.2}]},
	{"text":"really","emotions":[{"name":"Joy","score":0.8},{"name":"Anger","score":0.05}]}
]}]}}}]}}]`

func newJobServer(t *testing.T, statuses []string, predictions string) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/batch/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Hume-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"job_id":"job-1"}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&polls, 1)) - 1
		st := statuses[len(statuses)-1]
		if n < len(statuses) {
			st = statuses[n]
		}
		w.Write([]byte(`{"state":{"status":"` + st + `"}}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/job-1/predictions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(predictions))
	})
	return httptest.NewServer(mux), &polls
}

func testClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{
		BaseURL:      url,
		APIKey:       "key",
		SecretKey:    "secret",
		PollInterval: 5 * time.Millisecond,
		Timeout:      timeout,
	}, nil)
}

func TestAnalyze_Completed(t *testing.T) {
	srv, polls := newJobServer(t, []string{"QUEUED", "IN_PROGRESS", "COMPLETED"}, predictionsBody)
	defer srv.Close()

	res, err := testClient(srv.URL, time.Second).Analyze(context.Background(), "https://blob/a.webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(polls); got != 3 {
		t.Fatalf("expected 3 status polls, got %d", got)
	}
	if res.Emotion != types.Enthusiasm || res.Source != types.SourceProvider {
		t.Fatalf("expected provider enthusiasm, got %+v", res)
	}
	// enthusiasm avg (0.6+0.4+0.8)/3 = 0.6
	if math.Abs(res.Confidence-0.9) > 1e-9 {
		t.Fatalf("expected confidence 0.9, got %v", res.Confidence)
	}
	if res.Authenticity.Score != 0.85 {
		t.Fatalf("expected authenticity 0.85, got %v", res.Authenticity.Score)
	}
}

func TestAnalyze_TimeoutIsProviderError(t *testing.T) {
	srv, _ := newJobServer(t, []string{"IN_PROGRESS"}, predictionsBody)
	defer srv.Close()

	start := time.Now()
	_, err := testClient(srv.URL, 60*time.Millisecond).Analyze(context.Background(), "https://blob/a.webm")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Reason != ReasonTimeout {
		t.Fatalf("expected timeout ProviderError, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout was not honoured")
	}
}

func TestAnalyze_JobFailed(t *testing.T) {
	srv, polls := newJobServer(t, []string{"QUEUED", "FAILED"}, predictionsBody)
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).Analyze(context.Background(), "u")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Reason != ReasonJobFailed {
		t.Fatalf("expected failed ProviderError, got %v", err)
	}
	if got := atomic.LoadInt32(polls); got != 2 {
		t.Fatalf("polling should stop at FAILED, got %d polls", got)
	}
}

func TestAnalyze_NoPredictions(t *testing.T) {
	srv, _ := newJobServer(t, []string{"COMPLETED"}, `[{"results":{"predictions":[]}}]`)
	defer srv.Close()

	_, err := testClient(srv.URL, time.Second).Analyze(context.Background(), "u")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Reason != ReasonNoPredictions {
		t.Fatalf("expected no-predictions ProviderError, got %v", err)
	}
}

func TestAnalyze_ParentCancel(t *testing.T) {
	srv, _ := newJobServer(t, []string{"IN_PROGRESS"}, predictionsBody)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := testClient(srv.URL, 10*time.Second).Analyze(ctx, "u")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		t.Fatalf("cancellation must not be reported as a provider error")
	}
}

func TestAnalyze_NotConfigured(t *testing.T) {
	c := NewClient(Config{APIKey: "key"}, nil)
	if c.Configured() {
		t.Fatalf("secret key missing, client should not be configured")
	}
	_, err := c.Analyze(context.Background(), "u")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Reason != ReasonCredentials {
		t.Fatalf("expected credentials ProviderError, got %v", err)
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]types.Emotion{
		"Joy":                 types.Enthusiasm,
		"Surprise (positive)": types.Enthusiasm,
		"Doubt":               types.Uncertainty,
		"Annoyance":           types.Frustration,
		"Calmness":            types.Neutral,
	}
	for name, want := range cases {
		got, ok := Categorize(name)
		if !ok || got != want {
			t.Fatalf("Categorize(%q) = %q,%v want %q", name, got, ok, want)
		}
	}
	for _, name := range []string{"", "Envy"} {
		if _, ok := Categorize(name); ok {
			t.Fatalf("Categorize(%q) should not map", name)
		}
	}
}

func TestMapPredictions_NeutralDefault(t *testing.T) {
	res := MapPredictions([]Utterance{{Emotions: []EmotionScore{{Name: "Envy", Score: 0.9}}}})
	if res.Emotion != types.Neutral || res.Engagement != 0 {
		t.Fatalf("expected neutral with zero engagement, got %+v", res)
	}
	if math.Abs(res.Confidence-0.3) > 1e-9 {
		t.Fatalf("expected confidence 0.3, got %v", res.Confidence)
	}
}

func TestMapPredictions_Caps(t *testing.T) {
	res := MapPredictions([]Utterance{{Emotions: []EmotionScore{
		{Name: "Joy", Score: 0.9},
		{Name: "Doubt", Score: 0.8},
		{Name: "Anger", Score: 0.7},
	}}})
	if res.Confidence != 0.95 {
		t.Fatalf("confidence should cap at 0.95, got %v", res.Confidence)
	}
	if res.Engagement != 100 {
		t.Fatalf("engagement should cap at 100, got %d", res.Engagement)
	}
}
