package proxy

import (
	"encoding/json"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// NoResponse replaces a completion that carries no usable text.
	NoResponse = "No response"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// ChatCompletion is the subset of a completion response this service reads.
type ChatCompletion struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice keeps the message content raw so an unexpected shape in one choice
// does not fail decoding of the whole response.
type Choice struct {
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// ReplyText returns the text of the first choice, or NoResponse.
func (c *ChatCompletion) ReplyText() string {
	if c == nil || len(c.Choices) == 0 {
		return NoResponse
	}
	raw := c.Choices[0].Message.Content
	if len(raw) == 0 {
		return NoResponse
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text == "" {
		return NoResponse
	}
	return text
}

// Exchange is the transcript fragment returned to the browser: the user's
// message followed by the assistant reply.
type Exchange struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// NewExchange builds the two-turn transcript for one request.
func NewExchange(model, userMessage, reply string) Exchange {
	return Exchange{
		Model: DisplayModel(model),
		Messages: []Message{
			{Role: RoleUser, Content: userMessage},
			{Role: RoleAssistant, Content: reply},
		},
	}
}

// DisplayModel strips an OpenRouter variant suffix such as ":free".
func DisplayModel(model string) string {
	name, _, _ := strings.Cut(model, ":")
	return name
}
