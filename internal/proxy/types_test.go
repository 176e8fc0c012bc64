package proxy

import (
	"encoding/json"
	"testing"
)

func TestNewExchange(t *testing.T) {
	ex := NewExchange("mistralai/mistral-small-3.2-24b-instruct:free", "hello", "Hi")

	if ex.Model != "mistralai/mistral-small-3.2-24b-instruct" {
		t.Errorf("Model = %q", ex.Model)
	}
	if len(ex.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(ex.Messages))
	}
	if ex.Messages[0] != (Message{Role: "user", Content: "hello"}) {
		t.Errorf("messages[0] = %+v", ex.Messages[0])
	}
	if ex.Messages[1] != (Message{Role: "assistant", Content: "Hi"}) {
		t.Errorf("messages[1] = %+v", ex.Messages[1])
	}

	b, err := json.Marshal(ex)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"model":"mistralai/mistral-small-3.2-24b-instruct","messages":[{"role":"user","content":"hello"},{"role":"assistant","content":"Hi"}]}`
	if string(b) != want {
		t.Errorf("json = %s\nwant   %s", b, want)
	}
}

func TestDisplayModel(t *testing.T) {
	tests := map[string]string{
		"openai/gpt-4o":               "openai/gpt-4o",
		"meta/llama-3-8b:free":        "meta/llama-3-8b",
		"":                            "",
		"anthropic/claude:beta:extra": "anthropic/claude",
	}
	for in, want := range tests {
		if got := DisplayModel(in); got != want {
			t.Errorf("DisplayModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplyText_NilCompletion(t *testing.T) {
	var c *ChatCompletion
	if got := c.ReplyText(); got != NoResponse {
		t.Errorf("ReplyText() = %q", got)
	}
}

func TestReplyText_KeepsWhitespaceContent(t *testing.T) {
	var c ChatCompletion
	if err := json.Unmarshal([]byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`), &c); err != nil {
		t.Fatal(err)
	}
	if got := c.ReplyText(); got != "  " {
		t.Errorf("ReplyText() = %q, want the content unchanged", got)
	}
}
