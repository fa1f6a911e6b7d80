// Package slackapi narrows the Slack Web API down to the calls the channel
// workflows make, so handlers can be exercised against fakes.
package slackapi

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
)

// Error codes returned by the Slack Web API that the workflows branch on.
const (
	CodeNameTaken        = "name_taken"
	CodeAlreadyInChannel = "already_in_channel"
	CodeNotAuthorized    = "not_authorized"
	CodeRestrictedAction = "restricted_action"
)

// API is the subset of *slack.Client used by the bot.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)

	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	UpdateViewContext(ctx context.Context, view slack.ModalViewRequest, externalID, hash, viewID string) (*slack.ViewResponse, error)
	PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error)

	CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error)
	SetTopicOfConversationContext(ctx context.Context, channelID, topic string) (*slack.Channel, error)
	SetPurposeOfConversationContext(ctx context.Context, channelID, purpose string) (*slack.Channel, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
	JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error)
	ArchiveConversationContext(ctx context.Context, channelID string) error
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationsForUserContext(ctx context.Context, params *slack.GetConversationsForUserParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)

	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)

	AddPinContext(ctx context.Context, channel string, item slack.ItemRef) error
	ListPinsContext(ctx context.Context, channel string) ([]slack.Item, *slack.Paging, error)

	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

var _ API = (*slack.Client)(nil)

// ErrorCode extracts the Slack error code ("name_taken", ...) from err, or ""
// when err did not come from the Slack API.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err
	}
	var slackErrPtr *slack.SlackErrorResponse
	if errors.As(err, &slackErrPtr) && slackErrPtr != nil {
		return slackErrPtr.Err
	}
	return ""
}

// IsPermissionError reports whether err means the bot may not archive.
func IsPermissionError(err error) bool {
	switch ErrorCode(err) {
	case CodeNotAuthorized, CodeRestrictedAction:
		return true
	}
	return false
}

func IsNameTaken(err error) bool {
	return ErrorCode(err) == CodeNameTaken
}

func IsAlreadyInChannel(err error) bool {
	return ErrorCode(err) == CodeAlreadyInChannel
}

// DisplayName picks the name shown for a user: profile display name, then
// real name, then the raw id.
func DisplayName(user *slack.User, fallback string) string {
	if user == nil {
		return fallback
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.Profile.RealName != "" {
		return user.Profile.RealName
	}
	if user.RealName != "" {
		return user.RealName
	}
	return fallback
}

// Workspace is a Slack client bound to one installed team.
type Workspace struct {
	TeamID string
	API    API
}
