package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/slackapi/slackapitest"
)

func homeTexts(view slack.HomeTabViewRequest) string {
	var b strings.Builder
	for _, block := range view.Blocks.BlockSet {
		if section, ok := block.(*slack.SectionBlock); ok && section.Text != nil {
			b.WriteString(section.Text.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestPublishHome(t *testing.T) {
	f := newFixture(t)
	f.api.UserChannelPages["U1"] = [][]slack.Channel{
		{slackapitest.Channel("C1", "-mine"), slackapitest.Channel("C2", "general")},
		{slackapitest.Channel("C3", "-theirs")},
	}
	f.api.Pins["C1"] = []slack.Item{welcomePin("C1", "U1")}
	f.api.Pins["C3"] = []slack.Item{welcomePin("C3", "U2")}

	if err := f.svc.PublishHome(context.Background(), f.ws, "U1"); err != nil {
		t.Fatalf("PublishHome failed: %v", err)
	}

	view, ok := f.api.LastView()
	if !ok || view.Method != "PublishView" || view.UserID != "U1" {
		t.Fatalf("expected a published home tab, got %+v", view)
	}
	text := homeTexts(view.Home)
	if !strings.Contains(text, "<#C1>") || !strings.Contains(text, "<#C3>") {
		t.Errorf("managed channels should be listed, got %q", text)
	}
	if strings.Contains(text, "<#C2>") {
		t.Error("unmanaged channels must not be listed")
	}
}

func TestPublishHomeDirectoryFailure(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("GetConversationsForUser", "", slackapitest.SlackError("ratelimited"))

	if err := f.svc.PublishHome(context.Background(), f.ws, "U1"); err != nil {
		t.Fatalf("directory failures should render the empty state: %v", err)
	}
	view, _ := f.api.LastView()
	if text := homeTexts(view.Home); !strings.Contains(text, "haven't created any dash channels") {
		t.Errorf("expected empty state, got %q", text)
	}

	// The failure was not cached
	delete(f.api.Errors, "GetConversationsForUser")
	f.svc.PublishHome(context.Background(), f.ws, "U1")
	if n := f.api.CallCount("GetConversationsForUser"); n != 2 {
		t.Errorf("expected a retry after the failure, got %d listings", n)
	}
}

func TestPublishHomeUsesCache(t *testing.T) {
	f := newFixture(t)
	f.api.UserChannelPages["U1"] = [][]slack.Channel{{slackapitest.Channel("C1", "-mine")}}

	for i := 0; i < 3; i++ {
		if err := f.svc.PublishHome(context.Background(), f.ws, "U1"); err != nil {
			t.Fatalf("PublishHome failed: %v", err)
		}
	}
	if n := f.api.CallCount("GetConversationsForUser"); n != 1 {
		t.Errorf("expected one listing within the TTL, got %d", n)
	}
	if n := f.api.CallCount("PublishView"); n != 3 {
		t.Errorf("expected three publishes, got %d", n)
	}
}

func TestPublishHomePublishError(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("PublishView", "", slackapitest.SlackError("not_enabled"))

	if err := f.svc.PublishHome(context.Background(), f.ws, "U1"); err == nil {
		t.Error("expected error")
	}
}
