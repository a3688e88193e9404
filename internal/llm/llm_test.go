package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/octobees/leads-discovery/internal/config"
)

var testSchema = Schema{Name: "intent", JSON: json.RawMessage(`{"type":"object"}`)}

func TestExtractJSON(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
		err  bool
	}{
		"plain object":  {in: `{"a":1}`, want: `{"a":1}`},
		"code fence":    {in: "```json\n{\"a\":{\"b\":[1,2]}}\n```", want: `{"a":{"b":[1,2]}}`},
		"think tags":    {in: "<think>{nope}</think>\n{\"ok\":true}", want: `{"ok":true}`},
		"prose around":  {in: `Sure! Here it is: {"x":"}"} hope that helps`, want: `{"x":"}"}`},
		"array":         {in: `result: [1,2,3]`, want: `[1,2,3]`},
		"no json":       {in: `I cannot help with that`, err: true},
		"unbalanced":    {in: `{"a":1`, err: true},
		"escaped quote": {in: `{"a":"say \"hi\" {"}`, want: `{"a":"say \"hi\" {"}`},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNew_MissingCredential(t *testing.T) {
	if _, err := New(config.LLMConfig{Provider: "openai"}, nil); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := New(config.LLMConfig{Provider: "anthropic"}, nil); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := New(config.LLMConfig{Provider: "mystery", OpenAIAPIKey: "k"}, nil); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if m, err := New(config.LLMConfig{Provider: "openai", OpenAIAPIKey: "k", OpenAIModel: "gpt"}, nil); err != nil || m == nil {
		t.Fatalf("expected openai model, got %v", err)
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"search_term\":\"law firms\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`)
	}))
	defer server.Close()

	m := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1/", Model: "gpt-test"}, nil)
	raw, err := m.Complete(context.Background(), Request{System: "sys", Prompt: "law firms in Chicago", Schema: testSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"search_term":"law firms"}` {
		t.Fatalf("unexpected document: %s", raw)
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", body["response_format"])
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", body["messages"])
	}
}

func TestOpenAI_CompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	m := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-test"}, nil)
	if _, err := m.Complete(context.Background(), Request{Prompt: "x", Schema: testSchema}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"m1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"Here you go:\n{\"has_location\":true}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":2}}`)
	}))
	defer server.Close()

	m := NewAnthropic(AnthropicConfig{APIKey: "k", Model: "claude-test", BaseURL: server.URL}, nil)
	raw, err := m.Complete(context.Background(), Request{System: "sys", Prompt: "law firms in Chicago", Schema: testSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"has_location":true}` {
		t.Fatalf("unexpected document: %s", raw)
	}
	if system, _ := body["system"].(string); !strings.Contains(system, `{"type":"object"}`) {
		t.Fatalf("expected schema in system prompt, got %q", system)
	}
}

func TestDecode(t *testing.T) {
	m := NewScripted().Reply("intent", `{"search_term":"dentists"}`)
	out, err := Decode[struct {
		SearchTerm string `json:"search_term"`
	}](context.Background(), m, Request{Schema: testSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SearchTerm != "dentists" {
		t.Fatalf("expected dentists, got %q", out.SearchTerm)
	}

	failing := NewScripted().Fail("intent", errors.New("down"))
	if _, err := Decode[map[string]any](context.Background(), failing, Request{Schema: testSchema}); err == nil {
		t.Fatalf("expected error from failing model")
	}
}

func TestScripted_RepeatsLastReply(t *testing.T) {
	m := NewScripted().Reply("s", `{"n":1}`).Reply("s", `{"n":2}`)
	req := Request{Schema: Schema{Name: "s"}}
	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":2}`} {
		raw, err := m.Complete(context.Background(), req)
		if err != nil || string(raw) != want {
			t.Fatalf("expected %s, got %s (%v)", want, raw, err)
		}
	}
	if _, err := m.Complete(context.Background(), Request{Schema: Schema{Name: "other"}}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
