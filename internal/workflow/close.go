package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

// CloseChannel posts who closed the channel and archives it. It backs the
// button on the channel's own welcome message.
func (s *Service) CloseChannel(ctx context.Context, ws slackapi.Workspace, channelID, userID string) error {
	return s.closeChannel(ctx, ws, channelID, userID, PathDirect)
}

func (s *Service) closeChannel(ctx context.Context, ws slackapi.Workspace, channelID, userID, path string) error {
	_, _, err := ws.API.PostMessageContext(ctx, channelID, slack.MsgOptionText(views.ClosedText(userID), false))
	if err != nil {
		errCtx := logging.CreateErrorContext(channelID, userID, "workflow", "close").WithTeam(ws.TeamID)
		s.reporter.LogError(errCtx, err, "Failed to post close message")
		return fmt.Errorf("failed to post close message: %w", err)
	}
	return s.archive(ctx, ws, channelID, path)
}

// authorize checks that userID created channelID and tells the user why not
// otherwise. Lookup failures deny.
func (s *Service) authorize(ctx context.Context, ws slackapi.Workspace, channelID, userID string) error {
	err := s.auth.AuthorizeClose(ctx, ws, channelID, userID)
	if err == nil {
		return nil
	}

	message := views.ErrCreatorUnknown
	if errors.Is(err, auth.ErrNotCreator) {
		message = views.ErrNotCreator
	}
	errCtx := logging.CreateErrorContext(channelID, userID, "workflow", "authorize").WithTeam(ws.TeamID)
	s.reporter.Notify(ctx, ws.API, errCtx, message)
	return err
}

// CloseFromHome closes a channel from the home tab. Only the recorded
// creator may do so. Afterwards the caller's directory entry is dropped and
// their home tab re-rendered.
func (s *Service) CloseFromHome(ctx context.Context, ws slackapi.Workspace, channelID, userID string) error {
	if err := s.authorize(ctx, ws, channelID, userID); err != nil {
		return err
	}

	closeErr := s.closeChannel(ctx, ws, channelID, userID, PathHome)
	s.directory.Invalidate(ws.TeamID, userID)

	if err := s.PublishHome(ctx, ws, userID); err != nil {
		s.logger.Warn("Failed to refresh home tab",
			zap.String("team_id", ws.TeamID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return closeErr
}
