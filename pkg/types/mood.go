package types

import "time"

// RiskLevel grades the crisis assessment of an analyzed message.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// EmotionScore is one label from the emotion classifier.
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// MoodReport is the result of analyzing a user message: classifier output
// plus the crisis-keyword assessment.
type MoodReport struct {
	UserID          string         `json:"userId,omitempty"`
	Text            string         `json:"-"`
	Emotions        []EmotionScore `json:"emotions"`
	DominantEmotion string         `json:"dominantEmotion"`
	Risk            RiskLevel      `json:"risk"`
	CrisisDetected  bool           `json:"crisisDetected"`
	AnalyzedAt      time.Time      `json:"analyzedAt"`
}
