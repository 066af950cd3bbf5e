package actionable

import (
	"strings"
	"testing"

	"voice-interviewer-go/internal/aggregator"
	"voice-interviewer-go/internal/types"
)

func insight(counts map[types.Emotion]int, engagement, auth float64, flags map[string]int) aggregator.Insight {
	n := 0
	for _, c := range counts {
		n += c
	}
	return aggregator.Insight{
		Responses:       n,
		EmotionCounts:   counts,
		FlagCounts:      flags,
		AvgEngagement:   engagement,
		AvgAuthenticity: auth,
	}
}

func TestGenerate(t *testing.T) {
	cases := []struct {
		name string
		ins  aggregator.Insight
		want string
	}{
		{"empty", aggregator.Insight{}, "No responses"},
		{"frustration", insight(map[types.Emotion]int{types.Frustration: 2, types.Neutral: 2}, 70, 0.9, nil), "Frustration in 50%"},
		{"uncertainty", insight(map[types.Emotion]int{types.Uncertainty: 1, types.Neutral: 1}, 70, 0.9, nil), "Uncertainty in 50%"},
		{"authenticity", insight(map[types.Emotion]int{types.Neutral: 3}, 70, 0.5, map[string]int{"stock_phrases": 3, "brief_response": 1}), "stock_phrases, brief_response"},
		{"engagement", insight(map[types.Emotion]int{types.Neutral: 3}, 20, 0.9, nil), "Low engagement"},
		{"enthusiasm", insight(map[types.Emotion]int{types.Enthusiasm: 3, types.Neutral: 1}, 80, 0.9, nil), "Enthusiasm in 75%"},
		{"default", insight(map[types.Emotion]int{types.Neutral: 3}, 70, 0.9, nil), "No strong"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := Generate(tc.ins)
			if !strings.Contains(card.Insight, tc.want) {
				t.Fatalf("expected insight containing %q, got %q", tc.want, card.Insight)
			}
			if card.Action == "" || card.Impact == "" {
				t.Fatalf("incomplete card %+v", card)
			}
		})
	}
}
