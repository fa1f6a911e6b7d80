package workflow

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

// OpenBroadcastModal opens the Broadcast & Close dialog for sourceChannelID.
// suggestedDestination, usually the channel /dash was run from, is
// preselected when set.
func (s *Service) OpenBroadcastModal(ctx context.Context, ws slackapi.Workspace, triggerID, sourceChannelID, suggestedDestination string) error {
	modal := views.BroadcastModal(views.BroadcastModalOptions{
		Metadata:             views.BroadcastMetadata{ChannelID: sourceChannelID},
		DestinationChannelID: suggestedDestination,
	})
	if _, err := ws.API.OpenViewContext(ctx, triggerID, modal); err != nil {
		return fmt.Errorf("failed to open broadcast modal: %w", err)
	}
	return nil
}

// OpenBroadcastFromHome opens the dialog from the home tab after the same
// creator check a close from there gets.
func (s *Service) OpenBroadcastFromHome(ctx context.Context, ws slackapi.Workspace, triggerID, channelID, userID string) error {
	if err := s.authorize(ctx, ws, channelID, userID); err != nil {
		return err
	}
	return s.OpenBroadcastModal(ctx, ws, triggerID, channelID, "")
}

// BroadcastRequest is a submitted broadcast dialog.
type BroadcastRequest struct {
	UserID               string
	Metadata             views.BroadcastMetadata
	DestinationChannelID string
	Outcome              string
	// SummaryPending is set when the dialog was submitted while a summary
	// was still being generated.
	SummaryPending bool
}

// ValidateBroadcast returns the field errors that keep the dialog open.
func ValidateBroadcast(req BroadcastRequest) map[string]string {
	if req.SummaryPending {
		return map[string]string{views.BlockDestination: views.ErrSummaryPending}
	}
	return nil
}

// BroadcastResult reports how far a broadcast got. ArchiveErr is set when
// the outcome was shared but the source channel could not be archived.
type BroadcastResult struct {
	Posted     bool
	Archived   bool
	ArchiveErr error
}

// Broadcast shares the outcome in the destination channel, announces the
// closure in the source channel and only then archives it. An error means
// the outcome was not fully shared and nothing was archived.
func (s *Service) Broadcast(ctx context.Context, ws slackapi.Workspace, req BroadcastRequest) (BroadcastResult, error) {
	source := req.Metadata.ChannelID
	dest := req.DestinationChannelID
	outcome := textutil.RestoreUserMentions(req.Outcome, req.Metadata.UserNames)
	errCtx := logging.CreateErrorContext(source, req.UserID, "workflow", "broadcast").WithTeam(ws.TeamID)

	fail := func(step string, err error) (BroadcastResult, error) {
		s.metrics.Broadcasts.WithLabelValues(step + "_failed").Inc()
		s.reporter.LogAndNotify(ctx, ws.API, errCtx, err, "Failed to broadcast outcome", views.ErrBroadcastFailed)
		return BroadcastResult{}, fmt.Errorf("failed to broadcast outcome at %s: %w", step, err)
	}

	if _, _, _, err := ws.API.JoinConversationContext(ctx, dest); err != nil && !slackapi.IsAlreadyInChannel(err) {
		return fail("join", err)
	}

	_, _, err := ws.API.PostMessageContext(ctx, dest,
		slack.MsgOptionText(views.OutcomeText(source, outcome), false),
		slack.MsgOptionBlocks(views.OutcomeBlocks(source, outcome, req.UserID)...))
	if err != nil {
		return fail("post", err)
	}

	destName := ""
	if info, err := ws.API.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: dest}); err != nil {
		s.logger.Warn("Failed to look up destination channel",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", dest),
			zap.Error(err))
	} else {
		destName = info.Name
	}

	_, _, err = ws.API.PostMessageContext(ctx, source,
		slack.MsgOptionText(views.BroadcastClosedText(req.UserID, destName), false))
	if err != nil {
		return fail("announce", err)
	}

	s.metrics.Broadcasts.WithLabelValues("ok").Inc()
	s.logger.Info("Outcome broadcast",
		zap.String("team_id", ws.TeamID),
		zap.String("channel_id", source),
		zap.String("destination_id", dest),
		zap.String("user_id", req.UserID))

	result := BroadcastResult{Posted: true}
	if err := s.archive(ctx, ws, source, PathBroadcast); err != nil {
		result.ArchiveErr = err
	} else {
		result.Archived = true
	}
	s.directory.Invalidate(ws.TeamID, req.UserID)
	return result, nil
}
