// Package questiongen asks an OpenAI-compatible chat completion endpoint for
// recovery questions.
package questiongen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/noah-isme/sma-escalation-api/pkg/config"
)

const systemPrompt = "You are a question generator specializing in creating educational questions."

// ErrEmptyResponse is returned when the model answers without a usable question.
var ErrEmptyResponse = errors.New("question generator returned no questions")

// Generator produces question lists for a subject.
type Generator interface {
	Generate(ctx context.Context, subject string) ([]string, error)
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is the go-openai backed Generator.
type Client struct {
	chat          chatClient
	model         string
	temperature   float32
	maxTokens     int
	questionCount int
	maxQuestions  int
}

func New(cfg config.QuestionGenConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	count := cfg.QuestionCount
	if count <= 0 {
		count = 5
	}
	maxQuestions := cfg.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = 11
	}

	return &Client{
		chat:          openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		questionCount: count,
		maxQuestions:  maxQuestions,
	}
}

func (c *Client) Generate(ctx context.Context, subject string) ([]string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(subject, c.questionCount)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	questions := ParseQuestions(resp.Choices[0].Message.Content, c.maxQuestions)
	if len(questions) == 0 {
		return nil, ErrEmptyResponse
	}
	return questions, nil
}

// Prompt renders the user message for subject.
func Prompt(subject string, count int) string {
	return fmt.Sprintf(`Generate %d random questions about %s.
Include a mix of:
- Easy questions (basic understanding)
- Medium questions (application-based)
- Hard questions (analysis and problem-solving)
Make each question different in difficulty and concept.
Return only the questions, one per line.`, count, subject)
}

// ParseQuestions keeps at most limit non-empty trimmed lines.
func ParseQuestions(content string, limit int) []string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if q := strings.TrimSpace(line); q != "" {
			out = append(out, q)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
