package workflow

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/slackapi/slackapitest"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

func TestCreateLaunchPlanning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CreateRequest{UserID: "U1", Name: "Launch Planning!!", Invitees: []string{"U2"}}

	result := f.svc.CreateChannel(ctx, f.ws, req)
	if result.Rejected() {
		t.Fatalf("unexpected rejection %v", result.FieldErrors)
	}
	if result.ChannelName != "-launch-planning" || result.ChannelID != "CNEW1" {
		t.Errorf("unexpected result %+v", result)
	}
	if !f.svc.SetupChannel(ctx, f.ws, req, result.ChannelID) {
		t.Error("setup should be complete")
	}

	if !reflect.DeepEqual(f.api.Created, []string{"-launch-planning"}) {
		t.Errorf("unexpected created channels %v", f.api.Created)
	}
	if got := f.api.Invites["CNEW1"]; !reflect.DeepEqual(got, []string{"U1", "U2"}) {
		t.Errorf("expected invites [U1 U2], got %v", got)
	}
	if f.api.Topics["CNEW1"] != views.ChannelTopic {
		t.Errorf("unexpected topic %q", f.api.Topics["CNEW1"])
	}
	if f.api.CallCount("SetPurpose") != 0 {
		t.Error("purpose should not be set without one")
	}

	msgs := f.api.MessagesTo("CNEW1")
	if len(msgs) != 1 {
		t.Fatalf("expected only the welcome message, got %d", len(msgs))
	}
	all := texts(msgs)
	for _, want := range []string{"<@U1> " + auth.CreatorPhrase, "<@U1>, <@U2>"} {
		if !containsText(all, want) {
			t.Errorf("welcome message missing %q", want)
		}
	}
	if got := f.api.PinnedTS["CNEW1"]; len(got) != 1 || got[0] != msgs[0].Timestamp {
		t.Errorf("welcome message should be pinned, pins %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.ChannelsCreated); got != 1 {
		t.Errorf("expected channels_created 1, got %v", got)
	}
}

func TestInviteList(t *testing.T) {
	tests := []struct {
		name     string
		invitees []string
		want     []string
	}{
		{"creator not selected", []string{"U2", "U3"}, []string{"U1", "U2", "U3"}},
		{"creator selected", []string{"U2", "U1"}, []string{"U1", "U2"}},
		{"duplicates", []string{"U2", "U2", "U1", "U3", "U3"}, []string{"U1", "U2", "U3"}},
		{"nobody selected", nil, []string{"U1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InviteList("U1", tt.invitees); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCreateRejectsEmptySlug(t *testing.T) {
	f := newFixture(t)

	result := f.svc.CreateChannel(context.Background(), f.ws, CreateRequest{UserID: "U1", Name: "!!!"})
	if result.FieldErrors[views.BlockChannelName] != views.ErrNameEmpty {
		t.Errorf("unexpected field errors %v", result.FieldErrors)
	}
	if n := f.api.CallCount("CreateConversation"); n != 0 {
		t.Errorf("expected no create calls, got %d", n)
	}
}

func TestCreateNameTaken(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("CreateConversation", "", slackapitest.SlackError("name_taken"))

	result := f.svc.CreateChannel(context.Background(), f.ws, CreateRequest{UserID: "U1", Name: "Launch"})
	msg := result.FieldErrors[views.BlockChannelName]
	if !strings.Contains(msg, "#-launch ") {
		t.Errorf("field error should name the colliding channel, got %q", msg)
	}
	if got := testutil.ToFloat64(f.metrics.CreateRejected.WithLabelValues("name_taken")); got != 1 {
		t.Errorf("expected one name_taken rejection, got %v", got)
	}
}

func TestCreateOtherError(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("CreateConversation", "", slackapitest.SlackError("invalid_auth"))

	result := f.svc.CreateChannel(context.Background(), f.ws, CreateRequest{UserID: "U1", Name: "Launch"})
	if result.FieldErrors[views.BlockChannelName] != views.ErrCreateRetry {
		t.Errorf("unexpected field errors %v", result.FieldErrors)
	}
}

func TestSetupChannelWithPurpose(t *testing.T) {
	f := newFixture(t)
	req := CreateRequest{UserID: "U1", Name: "x", Purpose: "plan the launch"}

	f.svc.SetupChannel(context.Background(), f.ws, req, "C1")

	if f.api.Purposes["C1"] != "plan the launch" {
		t.Errorf("purpose not set: %v", f.api.Purposes)
	}
	if f.api.Topics["C1"] != views.ChannelTopic {
		t.Errorf("topic should always be the fixed text, got %q", f.api.Topics["C1"])
	}
}

func TestSetupChannelDegraded(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("SetTopic", "C1", slackapitest.SlackError("not_in_channel"))
	req := CreateRequest{UserID: "U1", Name: "x", Invitees: []string{"U2"}}

	if f.svc.SetupChannel(context.Background(), f.ws, req, "C1") {
		t.Error("setup should report degraded")
	}

	// Later steps still ran
	if len(f.api.Invites["C1"]) != 2 {
		t.Errorf("invites should still be sent, got %v", f.api.Invites["C1"])
	}
	if len(f.api.PinnedTS["C1"]) != 1 {
		t.Error("welcome message should still be pinned")
	}
	if n := countText(f.api.MessagesTo("C1"), views.ErrChannelSetup); n != 1 {
		t.Errorf("expected one degraded-setup notice, got %d", n)
	}
}

func TestSetupChannelPinFailure(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("AddPin", "C1", slackapitest.SlackError("not_pinnable"))

	if f.svc.SetupChannel(context.Background(), f.ws, CreateRequest{UserID: "U1"}, "C1") {
		t.Error("setup should report degraded")
	}
	if n := countText(f.api.MessagesTo("C1"), views.ErrChannelSetup); n != 1 {
		t.Errorf("expected one degraded-setup notice, got %d", n)
	}
}

func TestSetupChannelNotifiesOrigin(t *testing.T) {
	f := newFixture(t)
	req := CreateRequest{UserID: "U1", Purpose: "ship", OriginChannelID: "CORIGIN"}

	f.svc.SetupChannel(context.Background(), f.ws, req, "C1")

	msgs := f.api.MessagesTo("CORIGIN")
	if len(msgs) != 1 || msgs[0].Text != views.OriginText {
		t.Fatalf("expected one origin notice, got %+v", msgs)
	}
	all := texts(msgs)
	if !containsText(all, "<@U1> created a new dash channel: <#C1>") || !containsText(all, "*Purpose:* ship") {
		t.Errorf("unexpected origin notice %v", all)
	}
}

func TestSetupChannelOriginFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.api.Fail("PostMessage", "CORIGIN", slackapitest.SlackError("channel_not_found"))
	req := CreateRequest{UserID: "U1", OriginChannelID: "CORIGIN"}

	if !f.svc.SetupChannel(context.Background(), f.ws, req, "C1") {
		t.Error("origin notice failures must not degrade setup")
	}
	if len(f.api.Ephemerals()) != 0 {
		t.Error("origin notice failures must not be surfaced to the user")
	}
}

func TestOpenCreateModalPreselects(t *testing.T) {
	f := newFixture(t)

	err := f.svc.OpenCreateModal(context.Background(), f.ws, "trigger", "U1", "<@U2> and <@U3|bob> not <@invalid> <@U2>", "CORIGIN")
	if err != nil {
		t.Fatalf("OpenCreateModal failed: %v", err)
	}

	view, ok := f.api.LastView()
	if !ok || view.Method != "OpenView" || view.TriggerID != "trigger" {
		t.Fatalf("expected an opened view, got %+v", view)
	}
	if view.Modal.PrivateMetadata != "CORIGIN" {
		t.Errorf("origin channel should be carried, got %q", view.Modal.PrivateMetadata)
	}
	var preselected []string
	for _, b := range view.Modal.Blocks.BlockSet {
		input, ok := b.(*slack.InputBlock)
		if !ok || input.BlockID != views.BlockInviteUsers {
			continue
		}
		if el, ok := input.Element.(*slack.MultiSelectBlockElement); ok {
			preselected = el.InitialUsers
		}
	}
	if !reflect.DeepEqual(preselected, []string{"U1", "U2", "U3"}) {
		t.Errorf("expected [U1 U2 U3] preselected, got %v", preselected)
	}
}
