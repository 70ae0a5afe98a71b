package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/types"
)

// crisisKeywords trigger an immediate critical risk grade regardless of
// classifier output.
var crisisKeywords = []string{
	"suicide", "kill myself", "end my life", "self harm", "self-harm",
	"hurt myself", "no reason to live", "want to die", "overdose",
}

// negativeEmotions raise the risk grade when they dominate the classifier
// output.
var negativeEmotions = map[string]bool{
	"sadness": true, "grief": true, "fear": true, "despair": true,
	"anger": true, "disappointment": true, "remorse": true, "nervousness": true,
}

// HuggingFaceAnalyzer classifies message emotions through the HuggingFace
// inference API and grades crisis risk.
type HuggingFaceAnalyzer struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *logrus.Entry
}

// NewHuggingFaceAnalyzer constructs an analyzer from configuration.
func NewHuggingFaceAnalyzer(cfg *config.AIConfig, log *logger.Logger) *HuggingFaceAnalyzer {
	return &HuggingFaceAnalyzer{
		endpoint: cfg.InferenceURL + cfg.EmotionModel,
		token:    cfg.HuggingFaceToken,
		client:   &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		logger:   log.WithComponent("mood_analyzer"),
	}
}

// Analyze classifies the text and grades its risk. Crisis keywords force a
// critical grade even when the classifier is unavailable.
func (a *HuggingFaceAnalyzer) Analyze(ctx context.Context, text string) (*types.MoodReport, error) {
	report := &types.MoodReport{
		Text:       text,
		Risk:       types.RiskLow,
		AnalyzedAt: time.Now().UTC(),
	}

	if containsCrisisKeyword(text) {
		report.CrisisDetected = true
		report.Risk = types.RiskCritical
	}

	emotions, err := a.classify(ctx, text)
	if err != nil {
		// A crisis hit still produces a usable report without the
		// classifier; otherwise the failure propagates.
		if report.CrisisDetected {
			a.logger.WithError(err).Warn("Classifier unavailable, returning keyword-only report")
			return report, nil
		}
		return nil, types.NewExternalError(types.CodeInferenceUnavailable, "emotion classification failed", err)
	}

	sort.Slice(emotions, func(i, j int) bool { return emotions[i].Score > emotions[j].Score })
	report.Emotions = emotions
	if len(emotions) > 0 {
		report.DominantEmotion = emotions[0].Label
	}

	if !report.CrisisDetected {
		report.Risk = gradeRisk(emotions)
	}
	return report, nil
}

func (a *HuggingFaceAnalyzer) classify(ctx context.Context, text string) ([]types.EmotionScore, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference API returned status %d", resp.StatusCode)
	}

	// The API nests the label list one level deep for single inputs.
	var nested [][]types.EmotionScore
	if err := json.NewDecoder(resp.Body).Decode(&nested); err != nil {
		return nil, err
	}
	if len(nested) == 0 {
		return nil, fmt.Errorf("inference API returned no predictions")
	}
	return nested[0], nil
}

func containsCrisisKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// gradeRisk maps the dominant classifier labels to a risk level.
func gradeRisk(emotions []types.EmotionScore) types.RiskLevel {
	if len(emotions) == 0 {
		return types.RiskLow
	}

	top := emotions[0]
	if negativeEmotions[strings.ToLower(top.Label)] {
		if top.Score >= 0.75 {
			return types.RiskHigh
		}
		if top.Score >= 0.4 {
			return types.RiskModerate
		}
	}
	return types.RiskLow
}
