package text

type INormalizer interface {
	Normalize(text string) string
}

// FullSpeechNormalizer renders the whole answer as one speakable line.
type FullSpeechNormalizer struct{}

func (FullSpeechNormalizer) Normalize(text string) string {
	return CleanForFullSpeech(text)
}

// SummaryNormalizer renders the key points (or lead sentences) only.
type SummaryNormalizer struct{}

func (SummaryNormalizer) Normalize(text string) string {
	return SummarizeForSpeech(text)
}

// NormalizerFor returns the normalizer backing mode. Unknown modes fall back
// to the summary, which is the session default.
func NormalizerFor(mode SpeechMode) INormalizer {
	if mode == SpeechModeFull {
		return FullSpeechNormalizer{}
	}
	return SummaryNormalizer{}
}
