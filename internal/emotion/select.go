package emotion

import (
	"context"
	"errors"

	"voice-interviewer-go/internal/types"
)

var ErrNoAudioURL = errors.New("emotion: provider classification needs an audio url")

// Input is everything either classifier variant may look at.
type Input struct {
	Metrics    types.VoiceMetrics
	Transcript string
	AudioURL   string
}

// Classifier is implemented by the heuristic and provider variants.
type Classifier interface {
	Classify(ctx context.Context, in Input) (types.EmotionResult, error)
	Source() types.Source
}

// ProsodyAnalyzer is the external prosody backend used by Provider.
type ProsodyAnalyzer interface {
	Analyze(ctx context.Context, audioURL string) (types.EmotionResult, error)
	Configured() bool
}

// Heuristic classifies from voice metrics alone. It never fails.
type Heuristic struct {
	th Thresholds
}

func NewHeuristic(th Thresholds) *Heuristic {
	return &Heuristic{th: th}
}

func (h *Heuristic) Thresholds() Thresholds { return h.th }

func (h *Heuristic) Classify(_ context.Context, in Input) (types.EmotionResult, error) {
	return h.Evaluate(in.Metrics, in.Transcript), nil
}

func (h *Heuristic) Source() types.Source { return types.SourceHeuristic }

// Provider delegates to an external prosody analyzer.
type Provider struct {
	analyzer ProsodyAnalyzer
}

func NewProvider(a ProsodyAnalyzer) *Provider {
	return &Provider{analyzer: a}
}

func (p *Provider) Classify(ctx context.Context, in Input) (types.EmotionResult, error) {
	if in.AudioURL == "" {
		return types.EmotionResult{}, ErrNoAudioURL
	}
	res, err := p.analyzer.Analyze(ctx, in.AudioURL)
	if err != nil {
		return types.EmotionResult{}, err
	}
	res.Source = types.SourceProvider
	return res, nil
}

func (p *Provider) Source() types.Source { return types.SourceProvider }

// Select returns the provider variant when it can run for this input and the
// heuristic otherwise.
func Select(in Input, analyzer ProsodyAnalyzer, heuristic *Heuristic) Classifier {
	if analyzer != nil && analyzer.Configured() && in.AudioURL != "" {
		return NewProvider(analyzer)
	}
	return heuristic
}
