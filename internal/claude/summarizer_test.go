package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"
	"go.uber.org/zap/zaptest"

	"github.com/ghabxph/dash-on-slack/internal/config"
	"github.com/ghabxph/dash-on-slack/internal/slackapi/slackapitest"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
)

func message(user, text, subtype string) slack.Message {
	m := slack.Message{}
	m.User = user
	m.Text = text
	m.SubType = subtype
	return m
}

func TestFormatMessagesForPrompt(t *testing.T) {
	raw := []slack.Message{
		message("U1", "hello", ""),
		message("", "no author", ""),
		message("U2", "", ""),
		message("U3", "joined", "channel_join"),
		message("U4", "done", ""),
	}

	got := FormatMessagesForPrompt(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(got), got)
	}
	if got[0] != (textutil.Message{User: "U1", Text: "hello"}) || got[1].User != "U4" {
		t.Errorf("unexpected messages %+v", got)
	}
}

func TestFormatMessagesTruncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	exact := strings.Repeat("b", 500)

	got := FormatMessagesForPrompt([]slack.Message{message("U1", long, ""), message("U1", exact, "")})

	if len([]rune(got[0].Text)) != MaxCharsPerMessage {
		t.Errorf("expected truncated length %d, got %d", MaxCharsPerMessage, len(got[0].Text))
	}
	if !strings.HasSuffix(got[0].Text, "...") {
		t.Error("truncated text should end with an ellipsis")
	}
	if got[1].Text != exact {
		t.Error("text at the limit should not be truncated")
	}
}

func TestFormatMessagesKeepsMostRecent(t *testing.T) {
	var raw []slack.Message
	for i := 0; i < 150; i++ {
		raw = append(raw, message("U1", fmt.Sprintf("msg %d", i), ""))
	}

	got := FormatMessagesForPrompt(raw)
	if len(got) != MaxPromptMessages {
		t.Fatalf("expected %d messages, got %d", MaxPromptMessages, len(got))
	}
	if got[0].Text != "msg 50" || got[len(got)-1].Text != "msg 149" {
		t.Errorf("expected the most recent window, got %q..%q", got[0].Text, got[len(got)-1].Text)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt([]textutil.Message{{User: "alice", Text: "ship it"}, {User: "bob", Text: "agreed"}})
	expected := "Here are the messages from the channel:\n\nalice: ship it\nbob: agreed\n\nPlease summarise the key outcomes and decisions from this conversation."
	if prompt != expected {
		t.Errorf("unexpected prompt:\n%s", prompt)
	}
}

func TestSummarizeMissingKey(t *testing.T) {
	s := NewSummarizer(&config.Config{SummaryModel: "claude-haiku-4-5"}, zaptest.NewLogger(t))
	if s.Enabled() {
		t.Error("summarizer without key should be disabled")
	}
	_, err := s.Summarize(context.Background(), []textutil.Message{{User: "a", Text: "b"}})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		AnthropicAPIKey:  "sk-test",
		AnthropicBaseURL: server.URL,
		SummaryModel:     "claude-haiku-4-5",
	}
	return NewSummarizer(cfg, zaptest.NewLogger(t))
}

func TestSummarize(t *testing.T) {
	var request map[string]interface{}
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-test" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &request); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "  - alice shipped the release\n- bob owns the follow-up  "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 12}
		}`)
	})

	summary, err := s.Summarize(context.Background(), []textutil.Message{{User: "alice", Text: "shipped"}})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "- alice shipped the release\n- bob owns the follow-up" {
		t.Errorf("unexpected summary %q", summary)
	}

	if request["model"] != "claude-haiku-4-5" {
		t.Errorf("unexpected model %v", request["model"])
	}
	if request["max_tokens"] != float64(1024) {
		t.Errorf("unexpected max_tokens %v", request["max_tokens"])
	}
	if request["temperature"] != 0.3 {
		t.Errorf("unexpected temperature %v", request["temperature"])
	}
	if _, ok := request["system"]; !ok {
		t.Error("system prompt missing")
	}
}

func TestSummarizeEmptyResponse(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5","content":[{"type":"text","text":"   "}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	})

	_, err := s.Summarize(context.Background(), []textutil.Message{{User: "a", Text: "b"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSummarizeAPIError(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	})

	_, err := s.Summarize(context.Background(), []textutil.Message{{User: "a", Text: "b"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrMissingAPIKey) {
		t.Error("API failures must be distinguishable from a missing key")
	}
}

func TestFetchChannelMessagesIsChronological(t *testing.T) {
	api := slackapitest.New()
	api.History["C1"] = []slack.Message{
		message("U1", "third", ""),
		message("U1", "second", ""),
		message("U1", "first", ""),
	}

	got, err := FetchChannelMessages(context.Background(), api, "C1")
	if err != nil {
		t.Fatalf("FetchChannelMessages failed: %v", err)
	}
	if len(got) != 3 || got[0].Text != "first" || got[2].Text != "third" {
		t.Errorf("expected chronological order, got %+v", got)
	}
}
