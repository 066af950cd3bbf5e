package voice

import (
	"math"
	"time"

	"voice-interviewer-go/internal/types"
)

// Recorder accumulates samples for one recording span and hands out live
// snapshots at a fixed cadence. It is not safe for concurrent use.
type Recorder struct {
	agg          *Aggregator
	samples      []Sample
	snapped      bool
	lastSnapshot time.Duration
}

func NewRecorder(agg *Aggregator) *Recorder {
	if agg == nil {
		agg = NewAggregator(DefaultConfig())
	}
	return &Recorder{agg: agg}
}

func (r *Recorder) AddSample(value float64, timestampMs int64) {
	r.samples = append(r.samples, Sample{Value: value, TimestampMs: timestampMs})
}

// AddFrame converts an 8-bit time-domain frame into a volume sample.
func (r *Recorder) AddFrame(frame []byte, timestampMs int64) float64 {
	v := RMSVolume(frame)
	r.AddSample(v, timestampMs)
	return v
}

func (r *Recorder) Samples() []Sample {
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Snapshot returns a running estimate when the recording is old enough and the
// previous snapshot is at least SnapshotInterval behind.
func (r *Recorder) Snapshot(elapsed time.Duration) (types.VoiceMetrics, bool) {
	cfg := r.agg.Config()
	if elapsed <= cfg.MinLiveElapsed {
		return types.VoiceMetrics{}, false
	}
	if r.snapped && elapsed-r.lastSnapshot <= cfg.SnapshotInterval {
		return types.VoiceMetrics{}, false
	}
	m, ok := r.agg.Compute(r.samples, elapsed)
	if ok {
		r.snapped = true
		r.lastSnapshot = elapsed
	}
	return m, ok
}

// Final applies the same computation to the whole span.
func (r *Recorder) Final(duration time.Duration) (types.VoiceMetrics, bool) {
	return r.agg.Compute(r.samples, duration)
}

func (r *Recorder) Reset() {
	r.samples = nil
	r.snapped = false
	r.lastSnapshot = 0
}

// RMSVolume returns the 0-100 loudness of an unsigned 8-bit PCM frame where 128
// is silence.
func RMSVolume(frame []byte) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range frame {
		n := (float64(b) - 128) / 128
		sum += n * n
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return math.Min(rms*100, 100)
}
