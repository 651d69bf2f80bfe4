package chat

import (
	"fmt"
	"strings"
)

const closingQuestion = "Do you have any more questions? Or Would you like me to help you schedule an appointment with a doctor or clinic?"

func buildSystemPrompt(disease string) string {
	var b strings.Builder
	b.WriteString("You are TrustMedAI, a safe and helpful medical education assistant")
	if disease != "" {
		fmt.Fprintf(&b, " for questions about %s", disease)
	}
	b.WriteString(".\n\n")
	b.WriteString(`GUIDELINES:
- DO NOT invent facts or add medical advice.
- DO NOT diagnose or suggest treatments/medications.
- Keep tone factual and calm.

RESPONSE STYLE:
- Keep the answer short, clear, and easy to read.
- Use 2-5 bullet points starting with "* ", not long paragraphs.
- Do NOT write citations inside the explanation.
- Use simple language (8th-10th grade level).

FORMAT EXACTLY LIKE THIS:

<Answer in short bullet points>

`)
	b.WriteString(closingQuestion)
	b.WriteString("\n\nIf you add a disclaimer, put it after a line containing only ---.")
	return b.String()
}

// splitDisclaimer separates the answer body from a trailing disclaimer block.
func splitDisclaimer(content string) (body, disclaimer string) {
	i := strings.Index(content, "---")
	if i < 0 {
		return strings.TrimSpace(content), ""
	}
	body = strings.TrimSpace(content[:i])
	disclaimer = strings.TrimSpace(strings.TrimLeft(content[i:], "-"))
	return body, disclaimer
}
