// Package notifications posts the best-effort notices that follow a channel
// lifecycle step. Failures are logged and never returned.
package notifications

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

type Notifier struct {
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) post(ctx context.Context, api slackapi.API, channelID, kind string, options ...slack.MsgOption) bool {
	if _, _, err := api.PostMessageContext(ctx, channelID, options...); err != nil {
		n.logger.Warn("Failed to post notice",
			zap.String("notice", kind),
			zap.String("channel_id", channelID),
			zap.String("slack_error", slackapi.ErrorCode(err)),
			zap.Error(err))
		return false
	}
	return true
}

// OriginCreated tells the channel /dash was run from about the new channel.
func (n *Notifier) OriginCreated(ctx context.Context, api slackapi.API, originChannelID, creatorID, channelID, purpose string) bool {
	if originChannelID == "" {
		return false
	}
	return n.post(ctx, api, originChannelID, "origin",
		slack.MsgOptionText(views.OriginText, false),
		slack.MsgOptionBlocks(views.OriginNoticeBlocks(creatorID, channelID, purpose)...))
}

// SetupDegraded asks for manual follow-up after a partial channel setup.
func (n *Notifier) SetupDegraded(ctx context.Context, api slackapi.API, channelID string) bool {
	return n.post(ctx, api, channelID, "setup_degraded", slack.MsgOptionText(views.ErrChannelSetup, false))
}

// ArchiveDenied tells the channel an admin must archive it.
func (n *Notifier) ArchiveDenied(ctx context.Context, api slackapi.API, channelID string) bool {
	return n.post(ctx, api, channelID, "archive_denied", slack.MsgOptionText(views.ErrArchivePermission, false))
}
