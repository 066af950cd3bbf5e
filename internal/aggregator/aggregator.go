package aggregator

import (
	"math"

	"voice-interviewer-go/internal/types"
)

// Insight summarises the user turns of one interview.
type Insight struct {
	Turns           int                   `json:"turns"`
	Responses       int                   `json:"responses"`
	EmotionCounts   map[types.Emotion]int `json:"emotion_counts"`
	SourceCounts    map[types.Source]int  `json:"source_counts"`
	FlagCounts      map[string]int        `json:"flag_counts"`
	Dominant        types.Emotion         `json:"dominant_emotion"`
	AvgEngagement   float64               `json:"avg_engagement"`
	AvgConfidence   float64               `json:"avg_confidence"`
	AvgAuthenticity float64               `json:"avg_authenticity"`
	Trajectory      []types.Emotion       `json:"trajectory"`
}

func Summarize(turns []types.ConversationTurn) Insight {
	ins := Insight{
		Turns:         len(turns),
		EmotionCounts: map[types.Emotion]int{},
		SourceCounts:  map[types.Source]int{},
		FlagCounts:    map[string]int{},
		Dominant:      types.Neutral,
		Trajectory:    []types.Emotion{},
	}
	var eng, conf, auth float64
	for _, t := range turns {
		if t.Role != types.RoleUser || t.Emotion == nil {
			continue
		}
		e := t.Emotion
		ins.Responses++
		ins.EmotionCounts[e.Emotion]++
		if e.Source != "" {
			ins.SourceCounts[e.Source]++
		}
		for _, f := range e.Authenticity.Flags {
			ins.FlagCounts[f]++
		}
		eng += float64(e.Engagement)
		conf += e.Confidence
		auth += e.Authenticity.Score
		ins.Trajectory = append(ins.Trajectory, e.Emotion)
	}
	if ins.Responses == 0 {
		return ins
	}
	n := float64(ins.Responses)
	ins.AvgEngagement = round2(eng / n)
	ins.AvgConfidence = round2(conf / n)
	ins.AvgAuthenticity = round2(auth / n)

	best := 0
	for _, e := range types.Emotions {
		if c := ins.EmotionCounts[e]; c > best {
			best = c
			ins.Dominant = e
		}
	}
	return ins
}

// Share is the fraction of responses classified as e.
func (i Insight) Share(e types.Emotion) float64 {
	if i.Responses == 0 {
		return 0
	}
	return float64(i.EmotionCounts[e]) / float64(i.Responses)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
