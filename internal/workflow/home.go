package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

// PublishHome renders the user's home tab. A directory failure renders the
// empty state instead of failing.
func (s *Service) PublishHome(ctx context.Context, ws slackapi.Workspace, userID string) error {
	listing, err := s.directory.Get(ctx, ws, userID)
	if err != nil {
		s.logger.Error("Failed to list dash channels for home tab",
			zap.String("team_id", ws.TeamID),
			zap.String("user_id", userID),
			zap.Error(err))
	}

	if _, err := ws.API.PublishViewContext(ctx, userID, views.HomeView(listing), ""); err != nil {
		return fmt.Errorf("failed to publish home tab: %w", err)
	}
	return nil
}
