package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap/zaptest"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/directory"
	"github.com/ghabxph/dash-on-slack/internal/metrics"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/slackapi/slackapitest"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

type fakeSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
	got     []textutil.Message
}

func (f *fakeSummarizer) Summarize(ctx context.Context, messages []textutil.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = messages
	return f.summary, f.err
}

type fixture struct {
	svc        *Service
	api        *slackapitest.Fake
	ws         slackapi.Workspace
	summarizer *fakeSummarizer
	metrics    *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	authSvc := auth.NewService(logger)
	summarizer := &fakeSummarizer{summary: "- done"}
	api := slackapitest.New()

	svc := NewService(Deps{
		ChannelPrefix: "-",
		Auth:          authSvc,
		Directory:     directory.New(authSvc, "-", 30*time.Second, m, logger),
		Summarizer:    summarizer,
		Metrics:       m,
		Logger:        logger,
	})

	return &fixture{
		svc:        svc,
		api:        api,
		ws:         slackapi.Workspace{TeamID: "T1", API: api},
		summarizer: summarizer,
		metrics:    m,
	}
}

// texts returns the fallback text and every block text of each message.
func texts(msgs []slackapitest.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Text)
		out = append(out, slackapitest.BlockTexts(m.Blocks)...)
	}
	return out
}

func containsText(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func countText(msgs []slackapitest.Message, text string) int {
	n := 0
	for _, m := range msgs {
		if m.Text == text {
			n++
		}
	}
	return n
}

func nonEphemeral(msgs []slackapitest.Message) []slackapitest.Message {
	var out []slackapitest.Message
	for _, m := range msgs {
		if !m.Ephemeral {
			out = append(out, m)
		}
	}
	return out
}

func outcomeValue(modal slack.ModalViewRequest) (string, bool) {
	for _, b := range modal.Blocks.BlockSet {
		input, ok := b.(*slack.InputBlock)
		if !ok || input.BlockID != views.BlockOutcome {
			continue
		}
		if el, ok := input.Element.(*slack.PlainTextInputBlockElement); ok {
			return el.InitialValue, true
		}
	}
	return "", false
}

func hasBlock(modal slack.ModalViewRequest, blockID string) bool {
	for _, b := range modal.Blocks.BlockSet {
		switch block := b.(type) {
		case *slack.InputBlock:
			if block.BlockID == blockID {
				return true
			}
		case *slack.SectionBlock:
			if block.BlockID == blockID {
				return true
			}
		case *slack.ActionBlock:
			if block.BlockID == blockID {
				return true
			}
		}
	}
	return false
}

func destinationValue(modal slack.ModalViewRequest) string {
	for _, b := range modal.Blocks.BlockSet {
		input, ok := b.(*slack.InputBlock)
		if !ok || input.BlockID != views.BlockDestination {
			continue
		}
		if el, ok := input.Element.(*slack.SelectBlockElement); ok {
			return el.InitialConversation
		}
	}
	return ""
}

func welcomePin(channelID, creatorID string) slack.Item {
	return slackapitest.PinnedMessage(channelID, "UBOT", auth.CreatorText(creatorID))
}
