package coursegen

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

// Generator produces a course from a free-form prompt. Implementations are
// pluggable so tests and offline setups can swap the model out.
type Generator interface {
	GenerateCourse(ctx context.Context, prompt, userLevel string) (*store.GeneratedCourse, error)
}

const systemPrompt = `You are a Mandarin vocabulary course builder. Given a topic, respond with a JSON object:
{"title": string, "description": string, "words": [{"chinese": string, "pinyin": string, "english": string}]}
Return 10 to 20 words appropriate for the requested proficiency level. Respond with JSON only.`

type openAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a chat-completion backed Generator.
func NewOpenAIGenerator(apiKey, baseURL, model string) (Generator, error) {
	if apiKey == "" {
		return nil, apperr.ProviderUnavailable("generator API key is not configured")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (g *openAIGenerator) GenerateCourse(ctx context.Context, prompt, userLevel string) (*store.GeneratedCourse, error) {
	userContent := prompt
	if userLevel != "" {
		userContent = fmt.Sprintf("Topic: %s\nLearner level: %s", prompt, userLevel)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) {
			return nil, apperr.ProviderResponse("generator request rejected", err)
		}
		return nil, apperr.Wrap(err, apperr.ErrCodeProviderUnavailable, "generator unreachable")
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.ProviderResponse("generator returned no choices", nil)
	}

	course := &store.GeneratedCourse{}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), course); err != nil {
		return nil, apperr.ProviderResponse("generator returned malformed JSON", err)
	}
	if err := course.Validate(); err != nil {
		return nil, apperr.ProviderResponse("generator returned invalid course", err)
	}
	return course, nil
}
