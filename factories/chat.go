package factories

import (
	"fmt"

	"trustmed/core"
	"trustmed/services/backend"
	openaichat "trustmed/services/openai/chat"
)

// BuildChatService constructs the chat provider named by settings.Chat.Provider.
func BuildChatService(settings Settings, logger *core.Logger) (core.ChatService, error) {
	switch settings.Chat.Provider {
	case ProviderBackend, "":
		return backend.NewClient(backend.Config{BaseURL: settings.Chat.BackendURL, Logger: logger}), nil
	case ProviderOpenAI:
		svc, err := openaichat.NewOpenAIChatService(openaichat.Config{
			APIKey:      settings.APIKeys.OpenAI,
			BaseURL:     settings.Chat.OpenAIBaseURL,
			Model:       settings.Chat.OpenAIModel,
			MaxTokens:   settings.Chat.MaxTokens,
			Temperature: settings.Chat.Temperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	return nil, fmt.Errorf("chat provider %q: unknown", settings.Chat.Provider)
}
