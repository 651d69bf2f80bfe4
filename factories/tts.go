package factories

import (
	"fmt"

	"trustmed/core"
	ttshandler "trustmed/handlers/tts"
	"trustmed/services/backend"
	cartesia "trustmed/services/cartesia/tts"
)

// BuildSynthesizer constructs the speech provider named by settings.TTS.Provider.
func BuildSynthesizer(settings Settings, logger *core.Logger) (ttshandler.Synthesizer, error) {
	switch settings.TTS.Provider {
	case ProviderBackend, "":
		return backend.NewClient(backend.Config{BaseURL: settings.TTS.BackendURL, Logger: logger}), nil
	case ProviderCartesia:
		synth, err := cartesia.NewCartesiaTTS(cartesia.CartesiaTTSConfig{
			APIKey:   settings.APIKeys.Cartesia,
			ModelID:  settings.TTS.ModelID,
			VoiceID:  settings.TTS.VoiceID,
			Language: settings.TTS.Language,
		}, logger)
		if err != nil {
			return nil, err
		}
		return synth, nil
	}
	return nil, fmt.Errorf("tts provider %q: unknown", settings.TTS.Provider)
}
