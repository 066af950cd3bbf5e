package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks every failure to produce a usable transcript. Callers
// substitute a placeholder instead of aborting.
var ErrUnavailable = errors.New("transcription unavailable")

type Result struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"` // seconds
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType, language string) (Result, error)
}

// Mock returns a fixed transcript. Enabled with USE_MOCK_TRANSCRIBE=true.
type Mock struct {
	Text string
}

func (m Mock) Transcribe(_ context.Context, audio []byte, _, _ string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("%w: empty audio", ErrUnavailable)
	}
	text := m.Text
	if text == "" {
		text = "MOCK TRANSCRIPT: I have been using the product for a few months and it mostly works for our team."
	}
	return Result{Transcript: text, Confidence: 1}, nil
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
