package interfaces

import (
	"context"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// ChatClient generates an LLM response to a mental-health chat prompt.
type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// MoodAnalyzer classifies the emotional content of a message and grades
// its crisis risk.
type MoodAnalyzer interface {
	Analyze(ctx context.Context, text string) (*types.MoodReport, error)
}
