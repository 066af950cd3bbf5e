package emotion

import (
	"math"

	"voice-interviewer-go/internal/types"
)

// Term is one linear contribution to a propensity score. It is zero on the
// wrong side of Threshold and grows by Weight per unit beyond it.
type Term struct {
	Threshold float64 `mapstructure:"threshold"`
	Weight    float64 `mapstructure:"weight"`
}

func (t Term) above(v float64) float64 {
	if v <= t.Threshold {
		return 0
	}
	return (v - t.Threshold) * t.Weight
}

func (t Term) below(v float64) float64 {
	if v >= t.Threshold {
		return 0
	}
	return (t.Threshold - v) * t.Weight
}

// Thresholds holds the hand-tuned scoring constants. They carry no derivation
// and are kept configurable rather than fixed.
type Thresholds struct {
	// Floor is the minimum propensity needed to report a non-neutral emotion.
	Floor float64 `mapstructure:"floor"`

	EnthusiasmVolume Term `mapstructure:"enthusiasm_volume"` // above
	EnthusiasmPace   Term `mapstructure:"enthusiasm_pace"`   // above
	EnthusiasmPause  Term `mapstructure:"enthusiasm_pause"`  // below

	FrustrationVariance Term `mapstructure:"frustration_variance"` // above
	FrustrationPace     Term `mapstructure:"frustration_pace"`     // above
	FrustrationPause    Term `mapstructure:"frustration_pause"`    // below
	FrustrationPeak     Term `mapstructure:"frustration_peak"`     // above

	UncertaintyVolume Term `mapstructure:"uncertainty_volume"` // below
	UncertaintyPace   Term `mapstructure:"uncertainty_pace"`   // below
	UncertaintyPause  Term `mapstructure:"uncertainty_pause"`  // above

	// Confidence curves differ per emotion.
	EnthusiasmConfidence  Curve `mapstructure:"enthusiasm_confidence"`
	FrustrationConfidence Curve `mapstructure:"frustration_confidence"`
	UncertaintyConfidence Curve `mapstructure:"uncertainty_confidence"`

	NeutralConfidence  float64 `mapstructure:"neutral_confidence"`
	UncertaintyPenalty int     `mapstructure:"uncertainty_penalty"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Floor: 15,

		EnthusiasmVolume: Term{Threshold: 65, Weight: 1.0},
		EnthusiasmPace:   Term{Threshold: 140, Weight: 0.3},
		EnthusiasmPause:  Term{Threshold: 400, Weight: 0.02},

		FrustrationVariance: Term{Threshold: 0.25, Weight: 40},
		FrustrationPace:     Term{Threshold: 150, Weight: 0.2},
		FrustrationPause:    Term{Threshold: 350, Weight: 0.02},
		FrustrationPeak:     Term{Threshold: 80, Weight: 0.5},

		UncertaintyVolume: Term{Threshold: 55, Weight: 1.0},
		UncertaintyPace:   Term{Threshold: 110, Weight: 0.3},
		UncertaintyPause:  Term{Threshold: 450, Weight: 0.05},

		EnthusiasmConfidence:  Curve{Base: 0.6, Cap: 0.95},
		FrustrationConfidence: Curve{Base: 0.6, Cap: 0.90},
		UncertaintyConfidence: Curve{Base: 0.55, Cap: 0.85},

		NeutralConfidence:  0.65,
		UncertaintyPenalty: 15,
	}
}

// Curve maps a winning propensity score onto a confidence value: Base plus
// one hundredth of the score, never above Cap.
type Curve struct {
	Base float64 `mapstructure:"base"`
	Cap  float64 `mapstructure:"cap"`
}

func (c Curve) at(score float64) float64 {
	return math.Min(c.Base+score/100, c.Cap)
}

func (t Thresholds) curve(e types.Emotion) Curve {
	switch e {
	case types.Enthusiasm:
		return t.EnthusiasmConfidence
	case types.Frustration:
		return t.FrustrationConfidence
	default:
		return t.UncertaintyConfidence
	}
}
