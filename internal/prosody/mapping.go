package prosody

import (
	"math"
	"strings"

	"voice-interviewer-go/internal/types"
)

type category struct {
	emotion types.Emotion
	names   []string
}

// categories groups the provider's fine-grained prosody emotions by valence
// and arousal. Order matters: the first matching category wins.
var categories = []category{
	{types.Enthusiasm, []string{"excitement", "joy", "amusement", "pride", "triumph", "surprise (positive)", "interest"}},
	{types.Uncertainty, []string{"confusion", "contemplation", "doubt", "concentration", "realization", "tiredness", "awkwardness"}},
	{types.Frustration, []string{"anger", "annoyance", "distress", "pain", "disgust", "contempt", "boredom"}},
	{types.Neutral, []string{"calmness", "contentment", "relief", "satisfaction", "nostalgia", "sympathy", "admiration"}},
}

const (
	providerAuthenticity = 0.85
	confidenceBoost      = 0.3
	maxConfidence        = 0.95
)

// EmotionScore is one fine-grained emotion probability.
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Utterance holds the scores predicted for one speech segment.
type Utterance struct {
	Text     string         `json:"text,omitempty"`
	Emotions []EmotionScore `json:"emotions"`
}

// Categorize maps a provider emotion name onto a coarse category.
func Categorize(name string) (types.Emotion, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, c := range categories {
		for _, e := range c.names {
			if strings.Contains(n, e) || strings.Contains(e, n) {
				return c.emotion, true
			}
		}
	}
	return "", false
}

// CategoryAverages averages the scores of every mapped emotion across all
// utterances, per category.
func CategoryAverages(utts []Utterance) map[types.Emotion]float64 {
	sums := map[types.Emotion]float64{}
	counts := map[types.Emotion]int{}
	for _, u := range utts {
		for _, e := range u.Emotions {
			cat, ok := Categorize(e.Name)
			if !ok {
				continue
			}
			sums[cat] += e.Score
			counts[cat]++
		}
	}
	out := make(map[types.Emotion]float64, len(categories))
	for _, c := range categories {
		if counts[c.emotion] > 0 {
			out[c.emotion] = sums[c.emotion] / float64(counts[c.emotion])
		} else {
			out[c.emotion] = 0
		}
	}
	return out
}

// MapPredictions converts utterance predictions into an EmotionResult. Neutral
// is the default; another category must beat it strictly.
func MapPredictions(utts []Utterance) types.EmotionResult {
	avgs := CategoryAverages(utts)

	dominant := types.Neutral
	best := avgs[types.Neutral]
	total := 0.0
	for _, c := range categories {
		s := avgs[c.emotion]
		total += s
		if s > best {
			best = s
			dominant = c.emotion
		}
	}

	engagement := int(math.Min(math.Round(total*100), 100))
	if engagement < 0 {
		engagement = 0
	}
	confidence := math.Min(best+confidenceBoost, maxConfidence)

	return types.EmotionResult{
		Emotion:    dominant,
		Confidence: confidence,
		Engagement: engagement,
		Authenticity: types.Authenticity{
			Score: providerAuthenticity,
			Flags: []string{},
		},
		Metrics: types.EmotionMetrics{Conviction: confidence},
		Source:  types.SourceProvider,
	}
}
