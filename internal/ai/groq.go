// Package ai wraps the third-party inference APIs behind the ChatClient
// and MoodAnalyzer interfaces: Groq for LLM chat responses, HuggingFace
// for emotion classification, plus a local crisis-keyword scan.
package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

const systemPrompt = `You are a supportive mental-health companion for the HealNest platform.
Respond with empathy, keep answers short, and never give medical diagnoses.
If the user appears to be in crisis, gently encourage them to contact a
local helpline or emergency services.`

// GroqClient calls Groq's OpenAI-compatible chat completion API.
type GroqClient struct {
	client *openai.Client
	model  string
	logger *logrus.Entry
}

// NewGroqClient constructs a Groq-backed chat client from configuration.
func NewGroqClient(cfg *config.AIConfig, log *logger.Logger) *GroqClient {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	clientConfig.BaseURL = cfg.GroqBaseURL

	return &GroqClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.GroqModel,
		logger: log.WithComponent("groq_client"),
	}
}

// Chat sends the prompt to the chat completion API and returns the
// assistant's response text.
func (c *GroqClient) Chat(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("groq client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.6,
	})
	if err != nil {
		c.logger.WithError(err).Error("Chat completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
