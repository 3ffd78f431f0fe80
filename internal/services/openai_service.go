package services

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mata-s/novel-day/internal/narrative"
)

// OpenAIService implements narrative.CompletionClient using the official
// openai-go SDK (chat completions).
type OpenAIService struct {
	client openai.Client
}

// NewOpenAIService creates an OpenAI-backed completion client. baseURL is
// optional and overrides the API endpoint for compatible providers.
func NewOpenAIService(apiKey, baseURL string) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIService{client: openai.NewClient(opts...)}, nil
}

// Complete sends one chat completion request and returns the raw assistant text.
func (s *OpenAIService) Complete(ctx context.Context, req narrative.CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(req.MaxTokens),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
