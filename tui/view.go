package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"trustmed/core"
)

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	header := titleStyle.Render(m.config.Title)
	if m.loading {
		header += "  " + m.spinner.View() + helperStyle.Render(" Thinking…")
	}

	parts := []string{header, m.viewport.View(), m.statusLine()}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	if m.errorMsg != "" {
		parts = append(parts, errorStyle.Render(m.errorMsg))
	}
	parts = append(parts, m.input.View(), helpLine())
	return strings.Join(parts, "\n")
}

func helpLine() string {
	hints := [][2]string{
		{"enter", "send"},
		{"^r", "replay"},
		{"^s", "stop"},
		{"^t", "voice mode"},
		{"^o", "sources"},
		{"^d", "disclaimer"},
		{"^n", "new chat"},
		{"^l", "mic"},
		{"esc", "quit"},
	}
	cells := make([]string, 0, len(hints))
	for _, h := range hints {
		cells = append(cells, keyStyle.Render(h[0])+" "+helperStyle.Render(h[1]))
	}
	return strings.Join(cells, "  ")
}

// renderTranscript lays the messages out for a viewport of the given width.
func renderTranscript(messages []core.Message, width int) string {
	if width < minViewportWidth {
		width = minViewportWidth
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		if msg.IsAssistant() {
			b.WriteString(botLabelStyle.Render("TrustMedAI"))
		} else {
			b.WriteString(userLabelStyle.Render("You"))
		}
		b.WriteString("\n")
		b.WriteString(wordwrap.String(renderContent(strings.TrimSpace(msg.Content)), width))
		b.WriteString("\n")

		if !msg.IsAssistant() {
			continue
		}
		if len(msg.Sources) > 0 {
			if msg.ShowSources {
				b.WriteString(sourceStyle.Render("Sources:"))
				b.WriteString("\n")
				for _, src := range msg.Sources {
					b.WriteString(sourceStyle.Render(wordwrap.String("  • "+formatSource(src), width)))
					b.WriteString("\n")
				}
			} else {
				b.WriteString(helperStyle.Render(fmt.Sprintf("%d source(s) hidden", len(msg.Sources))))
				b.WriteString("\n")
			}
		}
		if msg.Disclaimer != "" && msg.ShowDisclaimer {
			b.WriteString(disclaimerStyle.Render(wordwrap.String(msg.Disclaimer, width)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

var boldSpan = regexp.MustCompile(`\*\*(.+?)\*\*`)

// renderContent styles the bits of markdown answers use: bold spans,
// quote lines and star or dash bullets.
func renderContent(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(trimmed)]
		switch {
		case strings.HasPrefix(trimmed, ">"):
			body := strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
			lines[i] = indent + quoteStyle.Render("│ "+renderInline(body))
		case strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "- "):
			lines[i] = indent + "• " + renderInline(strings.TrimSpace(trimmed[2:]))
		default:
			lines[i] = renderInline(line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderInline(s string) string {
	return boldSpan.ReplaceAllStringFunc(s, func(span string) string {
		return boldStyle.Render(span[2 : len(span)-2])
	})
}

func formatSource(src core.Source) string {
	parts := []string{}
	for _, p := range []string{src.Source, src.Section, src.Subsection} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}
