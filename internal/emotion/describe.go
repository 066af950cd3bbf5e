package emotion

import "voice-interviewer-go/internal/types"

var colors = map[types.Emotion]string{
	types.Enthusiasm:  "#10b981",
	types.Uncertainty: "#f59e0b",
	types.Frustration: "#ef4444",
	types.Neutral:     "#6b7280",
}

var descriptions = map[types.Emotion]string{
	types.Enthusiasm:  "High energy and positive engagement",
	types.Uncertainty: "Hesitant or unsure responses",
	types.Frustration: "Irritation or impatience detected",
	types.Neutral:     "Balanced emotional state",
}

// Color returns the display colour for e, falling back to neutral.
func Color(e types.Emotion) string {
	if c, ok := colors[e]; ok {
		return c
	}
	return colors[types.Neutral]
}

func Describe(e types.Emotion) string {
	if d, ok := descriptions[e]; ok {
		return d
	}
	return descriptions[types.Neutral]
}
