package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"trustmed/core"
)

const (
	DefaultModel       = openai.GPT4oMini
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 1500
)

type Config struct {
	APIKey      string
	BaseURL     string // Optional, for OpenAI-compatible endpoints.
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIChatService answers questions directly with a chat completion,
// without the TrustMedAI backend in between.
type OpenAIChatService struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

func NewOpenAIChatService(config Config, logger *core.Logger) (*OpenAIChatService, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("openai chat: API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = DefaultTemperature
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	return &OpenAIChatService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "openai_chat", "model": config.Model}),
	}, nil
}

func (s *OpenAIChatService) Ask(ctx context.Context, q core.Question) (*core.Answer, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(q.Disease)},
			{Role: openai.ChatMessageRoleUser, Content: q.Message},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, toServiceError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: no choices: %w", core.ErrMalformedResponse)
	}
	s.logger.Debug("chat completion", "finish_reason", string(resp.Choices[0].FinishReason), "total_tokens", resp.Usage.TotalTokens)

	body, disclaimer := splitDisclaimer(resp.Choices[0].Message.Content)
	return &core.Answer{Text: body, Disclaimer: disclaimer}, nil
}

func toServiceError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &core.ServiceError{Service: "openai", StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &core.ServiceError{Service: "openai", StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &core.ServiceError{Service: "openai", Err: err}
}
