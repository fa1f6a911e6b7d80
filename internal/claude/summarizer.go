package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/config"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
)

const (
	// MaxPromptMessages is how many of the most recent messages are sent.
	MaxPromptMessages = 100
	// MaxCharsPerMessage caps each message body, ellipsis included.
	MaxCharsPerMessage = 500

	maxTokens   = 1024
	temperature = 0.3
	ellipsis    = "..."
)

const systemPrompt = `You summarise the conversation of a temporary Slack channel that is being closed.
Produce a concise summary (3-8 bullet points) of:
- Key decisions made
- Action items agreed upon
- Important outcomes or conclusions

Only describe outcomes and decisions. Do not comment on the channel itself, who joined it or how it was set up.
Write in neutral past tense. Use plain text without markdown formatting. Each bullet point must start with "- ".
Be factual and concise. Do not invent information that is not present in the messages.`

// ErrMissingAPIKey is returned when no Anthropic API key is configured.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Summarizer turns channel history into a short outcome summary.
type Summarizer struct {
	client  *anthropic.Client
	model   anthropic.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewSummarizer creates a summarizer. Without an API key every Summarize call
// fails with ErrMissingAPIKey.
func NewSummarizer(cfg *config.Config, logger *zap.Logger, opts ...option.RequestOption) *Summarizer {
	s := &Summarizer{
		model:   anthropic.Model(cfg.SummaryModel),
		timeout: cfg.SummaryTimeout,
		logger:  logger,
	}
	if cfg.AnthropicAPIKey == "" {
		return s
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.AnthropicAPIKey),
		option.WithMaxRetries(1),
	}
	if cfg.AnthropicBaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.AnthropicBaseURL))
	}
	clientOpts = append(clientOpts, opts...)
	client := anthropic.NewClient(clientOpts...)
	s.client = &client
	return s
}

// Enabled reports whether an API key was configured.
func (s *Summarizer) Enabled() bool {
	return s.client != nil
}

// FormatMessagesForPrompt drops system messages and messages without an
// author or text, truncates long bodies and keeps the most recent window.
func FormatMessagesForPrompt(raw []slack.Message) []textutil.Message {
	var out []textutil.Message
	for _, m := range raw {
		if m.User == "" || m.Text == "" || m.SubType != "" {
			continue
		}
		out = append(out, textutil.Message{User: m.User, Text: truncate(m.Text, MaxCharsPerMessage)})
	}
	if len(out) > MaxPromptMessages {
		out = out[len(out)-MaxPromptMessages:]
	}
	return out
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

// BuildUserPrompt renders messages as "author: text" lines.
func BuildUserPrompt(messages []textutil.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.User, m.Text)
	}
	return "Here are the messages from the channel:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nPlease summarise the key outcomes and decisions from this conversation."
}

// Summarize asks the model for a bullet-point summary of messages.
func (s *Summarizer) Summarize(ctx context.Context, messages []textutil.Message) (string, error) {
	if s.client == nil {
		return "", ErrMissingAPIKey
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildUserPrompt(messages))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Debug("Generated channel summary",
		zap.String("model", string(s.model)),
		zap.Int("messages", len(messages)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)))

	return summary, nil
}
