package factories

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"trustmed/core"
	"trustmed/handlers/conversation"
	stthandler "trustmed/handlers/stt"
	ttshandler "trustmed/handlers/tts"
	"trustmed/utils/text"
)

const (
	ProviderBackend  = "backend"
	ProviderOpenAI   = "openai"
	ProviderCartesia = "cartesia"

	DefaultListenAddr = ":8080"
)

// Settings is the top-level config, loaded from settings.yaml or
// settings.json and then overridden from the environment.
type Settings struct {
	Server       ServerSettings       `json:"server" yaml:"server"`
	Log          LogSettings          `json:"log" yaml:"log"`
	Chat         ChatSettings         `json:"chat" yaml:"chat"`
	TTS          TTSSettings          `json:"tts" yaml:"tts"`
	STT          STTSettings          `json:"stt" yaml:"stt"`
	Conversation ConversationSettings `json:"conversation" yaml:"conversation"`
	Player       PlayerSettings       `json:"player" yaml:"player"`

	// APIKeys never come from the settings file.
	APIKeys APIKeys `json:"-" yaml:"-"`
}

type ServerSettings struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

type LogSettings struct {
	Level string `json:"level" yaml:"level"`
	// Dir, when set, receives one <session>.jsonl file per client session.
	Dir string `json:"dir" yaml:"dir"`
}

type ChatSettings struct {
	Provider       string  `json:"provider" yaml:"provider"`
	BackendURL     string  `json:"backend_url" yaml:"backend_url"`
	OpenAIModel    string  `json:"openai_model" yaml:"openai_model"`
	OpenAIBaseURL  string  `json:"openai_base_url" yaml:"openai_base_url"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float32 `json:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type TTSSettings struct {
	Provider       string `json:"provider" yaml:"provider"`
	BackendURL     string `json:"backend_url" yaml:"backend_url"`
	VoiceID        string `json:"voice_id" yaml:"voice_id"`
	ModelID        string `json:"model_id" yaml:"model_id"`
	Language       string `json:"language" yaml:"language"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type STTSettings struct {
	Language string `json:"language" yaml:"language"`
}

type ConversationSettings struct {
	Disease             string `json:"disease" yaml:"disease"`
	Greeting            string `json:"greeting" yaml:"greeting"`
	Disclaimer          string `json:"disclaimer" yaml:"disclaimer"`
	TTSMode             string `json:"tts_mode" yaml:"tts_mode"`
	SpeakIntroOnGesture *bool  `json:"speak_intro_on_gesture,omitempty" yaml:"speak_intro_on_gesture,omitempty"`
}

type PlayerSettings struct {
	Command []string `json:"command" yaml:"command"`
}

type APIKeys struct {
	OpenAI   string
	Cartesia string
}

// DefaultSettings returns Settings with every default applied.
func DefaultSettings() Settings {
	var s Settings
	s.applyDefaults()
	return s
}

// LoadSettings reads path as YAML or JSON depending on its extension.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("settings: read %s: %w", path, err)
	}
	return ParseSettings(data, filepath.Ext(path))
}

// ParseSettings unmarshals data and returns validated Settings. ext selects
// the format: ".json" for JSON, anything else for YAML.
func ParseSettings(data []byte, ext string) (Settings, error) {
	var s Settings
	switch strings.ToLower(ext) {
	case ".json":
		if err := sonic.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("settings: parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("settings: parse yaml: %w", err)
		}
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.Server.ListenAddr == "" {
		s.Server.ListenAddr = DefaultListenAddr
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Chat.Provider == "" {
		s.Chat.Provider = ProviderBackend
	}
	if s.Chat.TimeoutSeconds <= 0 {
		s.Chat.TimeoutSeconds = 60
	}
	if s.TTS.Provider == "" {
		s.TTS.Provider = ProviderBackend
	}
	if s.TTS.BackendURL == "" {
		s.TTS.BackendURL = s.Chat.BackendURL
	}
	if s.TTS.TimeoutSeconds <= 0 {
		s.TTS.TimeoutSeconds = 30
	}
	if s.STT.Language == "" {
		s.STT.Language = stthandler.DefaultConfig().Language
	}
	if s.Conversation.Disease == "" {
		s.Conversation.Disease = conversation.DefaultDisease
	}
	if s.Conversation.TTSMode == "" {
		s.Conversation.TTSMode = string(text.SpeechModeSummary)
	}
}

// Validate checks provider names, the log level and the TTS mode. API keys
// are checked when a service is built.
func (s *Settings) Validate() error {
	var errs []string
	switch s.Chat.Provider {
	case ProviderBackend, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Sprintf("chat.provider %q is not one of backend, openai", s.Chat.Provider))
	}
	switch s.TTS.Provider {
	case ProviderBackend, ProviderCartesia:
	default:
		errs = append(errs, fmt.Sprintf("tts.provider %q is not one of backend, cartesia", s.TTS.Provider))
	}
	if _, err := core.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	if _, err := text.ParseSpeechMode(s.Conversation.TTSMode); err != nil {
		errs = append(errs, "conversation.tts_mode: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ApplyEnv overrides settings from the environment and loads API keys.
func (s *Settings) ApplyEnv() error {
	s.Server.ListenAddr = getEnv("TRUSTMED_LISTEN_ADDR", s.Server.ListenAddr)
	s.Log.Level = getEnv("TRUSTMED_LOG_LEVEL", s.Log.Level)
	s.Log.Dir = getEnv("TRUSTMED_LOG_DIR", s.Log.Dir)
	s.Chat.Provider = getEnv("TRUSTMED_CHAT_PROVIDER", s.Chat.Provider)
	s.TTS.Provider = getEnv("TRUSTMED_TTS_PROVIDER", s.TTS.Provider)
	if url := getEnv("TRUSTMED_BACKEND_URL", ""); url != "" {
		s.Chat.BackendURL = url
		s.TTS.BackendURL = url
	}
	s.TTS.VoiceID = getEnv("CARTESIA_VOICE_ID", s.TTS.VoiceID)
	s.Conversation.Disease = getEnv("TRUSTMED_DISEASE", s.Conversation.Disease)
	s.Chat.TimeoutSeconds = getEnvAsInt("TRUSTMED_CHAT_TIMEOUT_SECONDS", s.Chat.TimeoutSeconds)

	s.APIKeys = APIKeys{
		OpenAI:   getEnv("OPENAI_API_KEY", ""),
		Cartesia: getEnv("CARTESIA_API_KEY", ""),
	}
	return s.Validate()
}

func (s Settings) LogLevel() core.Level {
	level, err := core.ParseLevel(s.Log.Level)
	if err != nil {
		return core.LevelInfo
	}
	return level
}

func (s Settings) ConversationConfig() conversation.ConversationConfig {
	cfg := conversation.DefaultConfig()
	cfg.Disease = s.Conversation.Disease
	if s.Conversation.Greeting != "" {
		cfg.Greeting = s.Conversation.Greeting
	}
	if s.Conversation.Disclaimer != "" {
		cfg.DefaultDisclaimer = s.Conversation.Disclaimer
	}
	if mode, err := text.ParseSpeechMode(s.Conversation.TTSMode); err == nil {
		cfg.DefaultTTSMode = mode
	}
	if s.Conversation.SpeakIntroOnGesture != nil {
		cfg.SpeakIntroOnGesture = *s.Conversation.SpeakIntroOnGesture
	}
	cfg.RequestTimeout = time.Duration(s.Chat.TimeoutSeconds) * time.Second
	return cfg
}

func (s Settings) TTSConfig() ttshandler.TTSConfig {
	cfg := ttshandler.DefaultConfig()
	cfg.RequestTimeout = time.Duration(s.TTS.TimeoutSeconds) * time.Second
	return cfg
}

func (s Settings) STTConfig() stthandler.STTConfig {
	return stthandler.STTConfig{Language: s.STT.Language}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		core.GetLogger().Warn("ignoring non-integer env value", "key", key, "value", value)
		return defaultValue
	}
	return n
}
