package text

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type SpeechMode string

const (
	SpeechModeSummary SpeechMode = "summary"
	SpeechModeFull    SpeechMode = "full"
)

func ParseSpeechMode(s string) (SpeechMode, error) {
	switch SpeechMode(strings.ToLower(strings.TrimSpace(s))) {
	case SpeechModeSummary:
		return SpeechModeSummary, nil
	case SpeechModeFull:
		return SpeechModeFull, nil
	}
	return "", fmt.Errorf("text: unknown speech mode %q", s)
}

func (m SpeechMode) Toggle() SpeechMode {
	if m == SpeechModeFull {
		return SpeechModeSummary
	}
	return SpeechModeFull
}

// SpokenVariant is derived from a message on demand and never stored.
type SpokenVariant struct {
	Mode SpeechMode
	Text string
}

func Spoken(mode SpeechMode, raw string) SpokenVariant {
	return SpokenVariant{Mode: mode, Text: NormalizerFor(mode).Normalize(raw)}
}

const (
	// DisclaimerSeparator starts the trailing disclaimer block of an answer.
	DisclaimerSeparator = "---"

	MaxSummaryBullets   = 5
	MaxSummarySentences = 2

	summaryLead = "Here are the key points: "
)

var (
	boldRegex     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRegex   = regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`)
	quoteRegex    = regexp.MustCompile(`^[ \t]*>[ \t]*`)
	bulletRegex   = regexp.MustCompile(`^[ \t]*\*[ \t]+`)
	linkRegex     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	urlRegex      = regexp.MustCompile(`https?://\S+`)
	bracketRegex  = regexp.MustCompile(`\[(.*?)\]`)
	// Pictographs and emoji joiners only; °, © and ™ are read aloud.
	emojiRegex    = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{231A}\x{231B}\x{23E9}-\x{23FA}\x{2B05}-\x{2B07}\x{2B1B}\x{2B1C}\x{2B50}\x{2B55}\x{E0020}-\x{E007F}\x{FE0E}\x{FE0F}\x{200D}\x{20E3}]`)
	spacesRegex   = regexp.MustCompile(`\s+`)
	sentenceRegex = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

// MainSection returns the answer body before the disclaimer separator.
func MainSection(raw string) string {
	if i := strings.Index(raw, DisclaimerSeparator); i >= 0 {
		return raw[:i]
	}
	return raw
}

// CleanForFullSpeech turns a markdown-ish answer into a single line for a
// speech synthesizer. Empty input yields "".
func CleanForFullSpeech(raw string) string {
	out := flatten(MainSection(raw))
	if out == "" {
		return ""
	}
	return terminate(out)
}

// SummarizeForSpeech speaks the first bullets of an answer, or its lead
// sentences when there are no bullets.
func SummarizeForSpeech(raw string) string {
	main := MainSection(raw)

	var bullets []string
	for _, line := range splitLines(main) {
		if !bulletRegex.MatchString(strings.TrimSpace(line)) {
			continue
		}
		item := strings.TrimRight(cleanLine(line), ".;,:!? ")
		if item == "" {
			continue
		}
		bullets = append(bullets, item)
		if len(bullets) == MaxSummaryBullets {
			break
		}
	}
	if len(bullets) > 0 {
		return strings.TrimSpace(summaryLead + strings.Join(bullets, ", ") + ".")
	}

	var sentences []string
	for _, s := range sentenceRegex.Split(flatten(main), -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sentences = append(sentences, s)
		if len(sentences) == MaxSummarySentences {
			break
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(sentences, ". ") + ".")
}

// flatten cleans every line and joins the survivors with sentence breaks.
// Markup is removed before joining so a URL never swallows a break.
func flatten(s string) string {
	var b strings.Builder
	for _, line := range splitLines(s) {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			if endsWithAny(b.String(), ".!?:;,") {
				b.WriteString(" ")
			} else {
				b.WriteString(". ")
			}
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}

func cleanLine(line string) string {
	line = boldRegex.ReplaceAllString(line, "$1")
	line = italicRegex.ReplaceAllString(line, "$1")
	line = quoteRegex.ReplaceAllString(line, "")
	line = bulletRegex.ReplaceAllString(line, "")
	line = linkRegex.ReplaceAllString(line, "$1")
	line = urlRegex.ReplaceAllString(line, "")
	line = bracketRegex.ReplaceAllString(line, "$1")
	line = strings.ReplaceAll(line, "`", "")
	line = emojiRegex.ReplaceAllString(line, "")
	line = spacesRegex.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

func terminate(s string) string {
	if endsWithAny(s, ".!?") {
		return s
	}
	return strings.TrimRight(s, ":;, ") + "."
}

func endsWithAny(s, chars string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && strings.ContainsRune(chars, r)
}
