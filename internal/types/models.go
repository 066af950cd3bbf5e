package types

import "time"

type Emotion string

const (
	Enthusiasm  Emotion = "enthusiasm"
	Uncertainty Emotion = "uncertainty"
	Frustration Emotion = "frustration"
	Neutral     Emotion = "neutral"
)

// Emotions lists every category in tie-break priority order.
var Emotions = []Emotion{Enthusiasm, Frustration, Uncertainty, Neutral}

func (e Emotion) Valid() bool {
	switch e {
	case Enthusiasm, Uncertainty, Frustration, Neutral:
		return true
	}
	return false
}

// Source names the classifier that produced an EmotionResult.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceProvider  Source = "provider"
)

type Role string

const (
	RoleAI   Role = "ai"
	RoleUser Role = "user"
)

// VoiceMetrics is the statistical summary of one recording span.
type VoiceMetrics struct {
	AvgVolume       float64 `json:"avgVolume"`       // 0-100
	VolumeVariance  float64 `json:"volumeVariance"`  // 0-1
	SpeechRate      float64 `json:"speechRate"`      // words per minute, estimated
	AvgPause        float64 `json:"avgPause"`        // ms
	ResponseLatency float64 `json:"responseLatency"` // ms
	PeakVolume      float64 `json:"peakVolume"`      // 0-100
}

type Authenticity struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags"`
}

type EmotionMetrics struct {
	Volume     float64 `json:"volume"`
	Pace       float64 `json:"pace"`
	Conviction float64 `json:"conviction"`
}

type EmotionResult struct {
	Emotion      Emotion        `json:"emotion"`
	Confidence   float64        `json:"confidence"`
	Engagement   int            `json:"engagement"`
	Authenticity Authenticity   `json:"authenticity"`
	Metrics      EmotionMetrics `json:"metrics"`
	Source       Source         `json:"source,omitempty"`
}

type ConversationTurn struct {
	ID           string         `json:"id"`
	Role         Role           `json:"role"`
	Content      string         `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
	Emotion      *EmotionResult `json:"emotion,omitempty"`
	VoiceMetrics *VoiceMetrics  `json:"voiceMetrics,omitempty"`
}

type GuideSection struct {
	Title     string   `json:"title" yaml:"title"`
	Questions []string `json:"questions" yaml:"questions"`
}

type DiscussionGuide struct {
	Title    string         `json:"title" yaml:"title"`
	Sections []GuideSection `json:"sections" yaml:"sections"`
}
