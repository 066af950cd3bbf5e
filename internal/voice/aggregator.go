// Package voice reduces raw volume samples captured during a recording into
// the VoiceMetrics summary consumed by the emotion classifier.
package voice

import (
	"math"
	"time"

	"voice-interviewer-go/internal/types"
)

// Sample is one volume reading taken at a fixed cadence.
type Sample struct {
	Value       float64 `json:"value"` // 0-100
	TimestampMs int64   `json:"timestampMs"`
}

// Config controls silence detection and the live snapshot cadence.
type Config struct {
	SilenceThreshold float64       `mapstructure:"silence_threshold"`
	MinPause         time.Duration `mapstructure:"min_pause"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	MinLiveElapsed   time.Duration `mapstructure:"min_live_elapsed"`
}

func DefaultConfig() Config {
	return Config{
		SilenceThreshold: 10,
		MinPause:         300 * time.Millisecond,
		SampleInterval:   50 * time.Millisecond,
		SnapshotInterval: 250 * time.Millisecond,
		MinLiveElapsed:   500 * time.Millisecond,
	}
}

const (
	baseSpeechRate    = 160.0
	pausePenaltyWPM   = 10.0
	minSpeechRate     = 60.0
	maxSpeechRate     = 220.0
	fallbackSpeechWPM = 120.0
)

type Aggregator struct {
	cfg Config
}

func NewAggregator(cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.MinPause <= 0 {
		cfg.MinPause = def.MinPause
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = def.SnapshotInterval
	}
	if cfg.MinLiveElapsed <= 0 {
		cfg.MinLiveElapsed = def.MinLiveElapsed
	}
	return &Aggregator{cfg: cfg}
}

func (a *Aggregator) Config() Config { return a.cfg }

// Compute summarises samples recorded over elapsed. It reports false when
// there is nothing to summarise yet, so callers never classify a zero-filled
// metrics object.
func (a *Aggregator) Compute(samples []Sample, elapsed time.Duration) (types.VoiceMetrics, bool) {
	if len(samples) == 0 || elapsed <= 0 {
		return types.VoiceMetrics{}, false
	}

	sum, peak := 0.0, 0.0
	for _, s := range samples {
		v := clamp(s.Value, 0, 100)
		sum += v
		if v > peak {
			peak = v
		}
	}
	n := float64(len(samples))
	avg := sum / n

	sq := 0.0
	for _, s := range samples {
		d := clamp(s.Value, 0, 100) - avg
		sq += d * d
	}
	variance := clamp(math.Sqrt(sq/n)/100, 0, 1)

	pauses := a.Pauses(samples)
	avgPause := 0.0
	if len(pauses) > 0 {
		total := 0.0
		for _, p := range pauses {
			total += p
		}
		avgPause = total / float64(len(pauses))
	}

	minutes := elapsed.Minutes()
	rate := baseSpeechRate - float64(len(pauses))/minutes*pausePenaltyWPM
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = fallbackSpeechWPM
	}
	rate = math.Round(clamp(rate, minSpeechRate, maxSpeechRate))

	return types.VoiceMetrics{
		AvgVolume:       math.Round(avg),
		VolumeVariance:  math.Round(variance*100) / 100,
		SpeechRate:      rate,
		AvgPause:        math.Round(avgPause),
		ResponseLatency: 0,
		PeakVolume:      math.Round(peak),
	}, true
}

// Pauses returns the duration in ms of every silent run that follows speech and
// lasts longer than MinPause. A run still open at the last sample is counted.
func (a *Aggregator) Pauses(samples []Sample) []float64 {
	minPause := float64(a.cfg.MinPause.Milliseconds())
	var (
		out       []float64
		lastSound int64
		heard     bool
		inRun     bool
		runEnd    int64
	)
	closeRun := func() {
		if inRun {
			if d := float64(runEnd - lastSound); d > minPause {
				out = append(out, d)
			}
			inRun = false
		}
	}
	for _, s := range samples {
		if s.Value < a.cfg.SilenceThreshold {
			if heard {
				inRun = true
				runEnd = s.TimestampMs
			}
			continue
		}
		closeRun()
		lastSound = s.TimestampMs
		heard = true
	}
	closeRun()
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
