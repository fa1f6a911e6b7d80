package views

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/directory"
	"github.com/ghabxph/dash-on-slack/internal/slackapi/slackapitest"
)

func blockIDs(blocks []slack.Block) []string {
	var ids []string
	for _, b := range blocks {
		switch block := b.(type) {
		case *slack.InputBlock:
			ids = append(ids, block.BlockID)
		case *slack.SectionBlock:
			ids = append(ids, block.BlockID)
		case *slack.ActionBlock:
			ids = append(ids, block.BlockID)
		}
	}
	return ids
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return buf.String()
}

// texts returns every text field of the rendered blocks, decoded. slack-go
// HTML-escapes some nested elements, so mrkdwn is not matched in raw JSON.
func texts(t *testing.T, blocks []slack.Block) string {
	t.Helper()
	return strings.Join(slackapitest.BlockTexts(marshal(t, blocks)), "\n")
}

func TestDecodeBroadcastMetadata(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		names int
	}{
		{"bare id", "C123", "C123", 0},
		{"json", `{"channelId":"C9","userNames":{"U1":"alice"}}`, "C9", 1},
		{"json without names", `{"channelId":"C9"}`, "C9", 0},
		{"broken json falls back", `{"channelId":`, `{"channelId":`, 0},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeBroadcastMetadata(tt.raw)
			if got.ChannelID != tt.want {
				t.Errorf("expected channel %q, got %q", tt.want, got.ChannelID)
			}
			if len(got.UserNames) != tt.names {
				t.Errorf("expected %d names, got %d", tt.names, len(got.UserNames))
			}
		})
	}
}

func TestBroadcastMetadataEncode(t *testing.T) {
	if got := (BroadcastMetadata{ChannelID: "C1"}).Encode(); got != "C1" {
		t.Errorf("expected bare id without names, got %q", got)
	}

	m := BroadcastMetadata{ChannelID: "C1", UserNames: map[string]string{"U1": "alice"}}
	decoded := DecodeBroadcastMetadata(m.Encode())
	if decoded.ChannelID != "C1" || decoded.UserNames["U1"] != "alice" {
		t.Errorf("unexpected decode %+v", decoded)
	}
}

func TestCreateChannelModal(t *testing.T) {
	modal := CreateChannelModal([]string{"U2"}, "CORIGIN")

	if modal.CallbackID != CallbackCreateChannel || modal.PrivateMetadata != "CORIGIN" {
		t.Errorf("unexpected modal header %q/%q", modal.CallbackID, modal.PrivateMetadata)
	}
	ids := blockIDs(modal.Blocks.BlockSet)
	for _, want := range []string{BlockChannelName, BlockInviteUsers, BlockPurpose} {
		if !contains(ids, want) {
			t.Errorf("missing block %s in %v", want, ids)
		}
	}
	if !strings.Contains(marshal(t, modal), `"initial_users":["U2"]`) {
		t.Error("preselected users should be filled into the picker")
	}
}

func TestBroadcastModal(t *testing.T) {
	modal := BroadcastModal(BroadcastModalOptions{
		Metadata:             BroadcastMetadata{ChannelID: "CSRC"},
		DestinationChannelID: "CDEST",
		InitialOutcome:       "shipped",
	})

	ids := blockIDs(modal.Blocks.BlockSet)
	for _, want := range []string{BlockDestination, BlockOutcome, BlockAIActions} {
		if !contains(ids, want) {
			t.Errorf("missing block %s in %v", want, ids)
		}
	}
	if modal.PrivateMetadata != "CSRC" {
		t.Errorf("unexpected metadata %q", modal.PrivateMetadata)
	}
	body := marshal(t, modal)
	if !strings.Contains(body, `"initial_conversation":"CDEST"`) || !strings.Contains(body, `"initial_value":"shipped"`) {
		t.Errorf("destination and outcome should be prefilled: %s", body)
	}
}

func TestBroadcastModalLoading(t *testing.T) {
	modal := BroadcastModal(BroadcastModalOptions{
		Metadata:             BroadcastMetadata{ChannelID: "CSRC"},
		DestinationChannelID: "CDEST",
		Loading:              true,
	})

	ids := blockIDs(modal.Blocks.BlockSet)
	if contains(ids, BlockAIActions) || contains(ids, BlockOutcome) {
		t.Errorf("loading modal should hide the outcome input and the button, got %v", ids)
	}
	if !contains(ids, BlockOutcomeBusy) {
		t.Errorf("loading modal should show the placeholder, got %v", ids)
	}
	if !strings.Contains(marshal(t, modal), SummaryLoading) {
		t.Error("loading text missing")
	}
}

func TestBroadcastModalWithoutSummaryButton(t *testing.T) {
	modal := BroadcastModal(BroadcastModalOptions{HideSummaryButton: true})
	if contains(blockIDs(modal.Blocks.BlockSet), BlockAIActions) {
		t.Error("summary button should be hidden")
	}
}

func TestWelcomeBlocksCarryCreatorPhrase(t *testing.T) {
	blocks := WelcomeBlocks("U1", "plan the launch", []string{"U1", "U2"}, "CORIGIN")
	text := texts(t, blocks)
	for _, want := range []string{
		"<@U1> " + auth.CreatorPhrase,
		"*Purpose:* plan the launch",
		"<@U1>, <@U2>",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("welcome blocks missing %q in %s", want, text)
		}
	}

	body := marshal(t, blocks)
	for _, want := range []string{
		`"action_id":"` + ActionCloseChannel + `"`,
		`"action_id":"` + ActionBroadcastAndClose + `","value":"CORIGIN"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("welcome blocks missing %q", want)
		}
	}

	if got := auth.CreatorFromPins([]slack.Item{{
		Type:    slack.TYPE_MESSAGE,
		Message: &slack.Message{Msg: slack.Msg{User: "UBOT", Text: WelcomeText("U1")}},
	}}, "UBOT"); !got.Found || got.UserID != "U1" {
		t.Errorf("welcome text should parse back to its creator, got %+v", got)
	}
}

func TestWelcomeBlocksWithoutPurpose(t *testing.T) {
	body := marshal(t, WelcomeBlocks("U1", "", []string{"U1"}, ""))
	if strings.Contains(body, "Purpose") {
		t.Error("purpose line should be omitted when empty")
	}
}

func TestOutcomeBlocks(t *testing.T) {
	text := texts(t, OutcomeBlocks("CSRC", "line one\nline two", "U7"))
	for _, want := range []string{
		"<#CSRC> has wrapped up.",
		"*Outcome:*\n>line one\n>line two",
		"Closed by <@U7>",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("outcome blocks missing %q in %s", want, text)
		}
	}
}

func TestBroadcastClosedText(t *testing.T) {
	if got := BroadcastClosedText("U1", "general"); got != "This channel was closed by <@U1>. Outcome was shared to #general." {
		t.Errorf("unexpected text %q", got)
	}
	if got := BroadcastClosedText("U1", ""); !strings.HasSuffix(got, "#unknown.") {
		t.Errorf("missing destination name should read unknown, got %q", got)
	}
}

func TestHomeViewEmpty(t *testing.T) {
	body := marshal(t, HomeView(directory.Listing{}))
	for _, want := range []string{HomeHeading, homeCreatedEmpty, homeMemberEmpty, ActionHomeCreate} {
		if !strings.Contains(body, want) {
			t.Errorf("home view missing %q", want)
		}
	}
}

func TestHomeViewButtons(t *testing.T) {
	view := HomeView(directory.Listing{
		Created:  []directory.Channel{{ID: "C1", Name: "-mine"}},
		MemberOf: []directory.Channel{{ID: "C2", Name: "-theirs"}},
	})
	if view.Type != slack.VTHomeTab {
		t.Errorf("unexpected view type %q", view.Type)
	}
	body := marshal(t, view)

	for _, want := range []string{
		ActionHomeJumpPrefix + "C1",
		ActionHomeClosePrefix + "C1",
		ActionHomeBroadcastPrefix + "C1",
		ActionHomeJumpPrefix + "C2",
		JumpURL("C2"),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("home view missing %q", want)
		}
	}
	for _, unwanted := range []string{ActionHomeClosePrefix + "C2", ActionHomeBroadcastPrefix + "C2"} {
		if strings.Contains(body, unwanted) {
			t.Errorf("member-of channels must not offer %q", unwanted)
		}
	}
}
