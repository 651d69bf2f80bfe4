package core

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source is a citation attached to an assistant answer. An empty Subsection
// means the service did not supply one.
type Source struct {
	Source     string `json:"source"`
	Section    string `json:"section"`
	Subsection string `json:"subsection,omitempty"`
}

// Message is one transcript entry plus its per-message UI state.
type Message struct {
	Role           Role     `json:"role"`
	Content        string   `json:"content"`
	Sources        []Source `json:"sources"`
	Disclaimer     string   `json:"disclaimer"`
	ShowSources    bool     `json:"show_sources"`
	ShowDisclaimer bool     `json:"show_disclaimer"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Sources: []Source{}}
}

func NewAssistantMessage(content string, sources []Source, disclaimer string) Message {
	if sources == nil {
		sources = []Source{}
	}
	return Message{
		Role:       RoleAssistant,
		Content:    content,
		Sources:    sources,
		Disclaimer: disclaimer,
	}
}

// Clone returns a deep copy so callers can never alias the store's slices.
func (m Message) Clone() Message {
	out := m
	out.Sources = make([]Source, len(m.Sources))
	copy(out.Sources, m.Sources)
	return out
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}
