// Package emotion classifies a respondent's emotional state from voice metrics
// and, optionally, the transcript of what they said.
package emotion

import (
	"math"
	"strings"

	"voice-interviewer-go/internal/types"
)

// Propensities are the unbounded, non-negative scores backing each non-neutral
// emotion.
type Propensities struct {
	Enthusiasm  float64 `json:"enthusiasm"`
	Frustration float64 `json:"frustration"`
	Uncertainty float64 `json:"uncertainty"`
}

// scores returns the three scores in tie-break priority order.
func (p Propensities) scores() []scored {
	return []scored{
		{types.Enthusiasm, p.Enthusiasm},
		{types.Frustration, p.Frustration},
		{types.Uncertainty, p.Uncertainty},
	}
}

type scored struct {
	emotion types.Emotion
	score   float64
}

var defaultHeuristic = NewHeuristic(DefaultThresholds())

// Classify runs the heuristic classifier with the default thresholds.
func Classify(m types.VoiceMetrics, transcript string) types.EmotionResult {
	return defaultHeuristic.Evaluate(m, transcript)
}

// ComputePropensities scores m with the default thresholds.
func ComputePropensities(m types.VoiceMetrics) Propensities {
	return defaultHeuristic.Propensities(m)
}

// Propensities scores sanitised metrics against the configured thresholds.
func (h *Heuristic) Propensities(m types.VoiceMetrics) Propensities {
	m = sanitize(m)
	th := h.th
	p := Propensities{
		Enthusiasm: th.EnthusiasmVolume.above(m.AvgVolume) +
			th.EnthusiasmPace.above(m.SpeechRate) +
			th.EnthusiasmPause.below(m.AvgPause),
		Frustration: th.FrustrationVariance.above(m.VolumeVariance) +
			th.FrustrationPace.above(m.SpeechRate) +
			th.FrustrationPause.below(m.AvgPause) +
			th.FrustrationPeak.above(m.PeakVolume),
		Uncertainty: th.UncertaintyVolume.below(m.AvgVolume) +
			th.UncertaintyPace.below(m.SpeechRate) +
			th.UncertaintyPause.above(m.AvgPause),
	}
	p.Enthusiasm = math.Max(p.Enthusiasm, 0)
	p.Frustration = math.Max(p.Frustration, 0)
	p.Uncertainty = math.Max(p.Uncertainty, 0)
	return p
}

// Evaluate is the pure classification function. Identical inputs always yield
// identical results.
func (h *Heuristic) Evaluate(m types.VoiceMetrics, transcript string) types.EmotionResult {
	m = sanitize(m)

	engagement := Engagement(m)
	conviction := Conviction(m)

	auth := types.Authenticity{Score: neutralAuthenticity, Flags: []string{}}
	if strings.TrimSpace(transcript) != "" {
		auth = AnalyzeAuthenticity(transcript)
	}

	res := types.EmotionResult{
		Emotion:      types.Neutral,
		Confidence:   h.th.NeutralConfidence,
		Engagement:   engagement,
		Authenticity: auth,
		Metrics: types.EmotionMetrics{
			Volume:     m.AvgVolume,
			Pace:       m.SpeechRate,
			Conviction: conviction,
		},
		Source: types.SourceHeuristic,
	}

	winner, ok := h.dominant(h.Propensities(m))
	if ok {
		res.Emotion = winner.emotion
		res.Confidence = h.th.curve(winner.emotion).at(winner.score)
		if winner.emotion == types.Uncertainty {
			res.Engagement = clampInt(engagement-h.th.UncertaintyPenalty, 0, 100)
		}
	}
	res.Confidence = clamp(res.Confidence, 0, 1)
	return res
}

// dominant picks the highest score that reaches the floor. Exact ties go to
// the earlier emotion in priority order.
func (h *Heuristic) dominant(p Propensities) (scored, bool) {
	var best scored
	found := false
	for _, s := range p.scores() {
		if s.score < h.th.Floor {
			continue
		}
		if !found || s.score > best.score {
			best = s
			found = true
		}
	}
	return best, found
}

// Engagement blends loudness and pace, each worth at most 50 points.
func Engagement(m types.VoiceMetrics) int {
	volume := math.Min(m.AvgVolume/70*50, 50)
	pace := 0.0
	if m.SpeechRate > 100 {
		pace = math.Min((m.SpeechRate-100)/80*50, 50)
	}
	return clampInt(int(math.Round(volume+pace)), 0, 100)
}

// Conviction combines volume, stability and pace into 0-1.
func Conviction(m types.VoiceMetrics) float64 {
	c := (m.AvgVolume/100)*0.4 + (1-m.VolumeVariance)*0.3 + (m.SpeechRate/200)*0.3
	return clamp(c, 0, 1)
}

func sanitize(m types.VoiceMetrics) types.VoiceMetrics {
	m.AvgVolume = clamp(m.AvgVolume, 0, 100)
	m.PeakVolume = clamp(m.PeakVolume, 0, 100)
	m.VolumeVariance = clamp(m.VolumeVariance, 0, 1)
	m.SpeechRate = math.Max(m.SpeechRate, 0)
	m.AvgPause = math.Max(m.AvgPause, 0)
	m.ResponseLatency = math.Max(m.ResponseLatency, 0)
	return m
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
