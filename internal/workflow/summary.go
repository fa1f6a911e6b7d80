package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ghabxph/dash-on-slack/internal/claude"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

// SummaryRequest is a click on the summary button inside an open broadcast
// dialog.
type SummaryRequest struct {
	ViewID               string
	UserID               string
	Metadata             views.BroadcastMetadata
	DestinationChannelID string
}

// ResolveDisplayNames looks users up in parallel. Users that cannot be
// looked up are left out of the map.
func (s *Service) ResolveDisplayNames(ctx context.Context, ws slackapi.Workspace, userIDs []string) map[string]string {
	var (
		mu    sync.Mutex
		names = make(map[string]string, len(userIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)
	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			user, err := ws.API.GetUserInfoContext(gctx, id)
			if err != nil {
				s.logger.Debug("Failed to look up user", zap.String("user_id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			names[id] = slackapi.DisplayName(user, id)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return names
}

// summarize produces the outcome text for the dialog and the name map that
// has to travel with it. hideButton is set when retrying cannot help.
func (s *Service) summarize(ctx context.Context, ws slackapi.Workspace, channelID string) (text string, names map[string]string, hideButton bool) {
	raw, err := claude.FetchChannelMessages(ctx, ws.API, channelID)
	if err != nil {
		s.metrics.Summaries.WithLabelValues("error").Inc()
		s.logger.Error("Failed to fetch channel history",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", channelID),
			zap.Error(err))
		return views.SummaryFailed, nil, false
	}

	messages := claude.FormatMessagesForPrompt(raw)
	if len(messages) == 0 {
		s.metrics.Summaries.WithLabelValues("empty").Inc()
		return views.SummaryEmpty, nil, false
	}

	names = s.ResolveDisplayNames(ctx, ws, textutil.ExtractUserIDs(messages))
	summary, err := s.summarizer.Summarize(ctx, textutil.ResolveNamesInMessages(messages, names))
	switch {
	case errors.Is(err, claude.ErrMissingAPIKey):
		s.metrics.Summaries.WithLabelValues("no_api_key").Inc()
		s.logger.Warn("AI summary requested without an API key", zap.String("team_id", ws.TeamID))
		return views.SummaryNoAPIKey, nil, true
	case err != nil:
		s.metrics.Summaries.WithLabelValues("error").Inc()
		s.logger.Error("Failed to generate summary",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", channelID),
			zap.Error(err))
		return views.SummaryFailed, nil, false
	}

	s.metrics.Summaries.WithLabelValues("ok").Inc()
	return summary, names, false
}

// GenerateSummary puts the dialog into its loading state, summarises the
// source channel and re-renders the dialog with the result. The dialog
// always leaves the loading state, whatever the outcome.
func (s *Service) GenerateSummary(ctx context.Context, ws slackapi.Workspace, req SummaryRequest) error {
	loading := views.BroadcastModal(views.BroadcastModalOptions{
		Metadata:             req.Metadata,
		DestinationChannelID: req.DestinationChannelID,
		Loading:              true,
	})
	if _, err := ws.API.UpdateViewContext(ctx, loading, "", "", req.ViewID); err != nil {
		return fmt.Errorf("failed to show summary loading state: %w", err)
	}

	text, names, hideButton := s.summarize(ctx, ws, req.Metadata.ChannelID)

	metadata := views.BroadcastMetadata{ChannelID: req.Metadata.ChannelID, UserNames: textutil.NamesInText(text, names)}
	if len(metadata.Encode()) > views.MaxMetadataLength {
		s.logger.Warn("Summary names do not fit in the dialog, mentions will not be restored",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", req.Metadata.ChannelID),
			zap.Int("names", len(metadata.UserNames)))
		metadata.UserNames = nil
	}

	render := func(metadata views.BroadcastMetadata) error {
		done := views.BroadcastModal(views.BroadcastModalOptions{
			Metadata:             metadata,
			DestinationChannelID: req.DestinationChannelID,
			InitialOutcome:       text,
			HideSummaryButton:    hideButton,
		})
		_, err := ws.API.UpdateViewContext(ctx, done, "", "", req.ViewID)
		return err
	}

	err := render(metadata)
	if err != nil && len(metadata.UserNames) > 0 {
		// Without names the summary keeps display names instead of mentions,
		// which beats a dialog stuck loading.
		s.logger.Warn("Failed to show summary with names, retrying without",
			zap.String("team_id", ws.TeamID),
			zap.String("slack_error", slackapi.ErrorCode(err)),
			zap.Error(err))
		metadata.UserNames = nil
		err = render(metadata)
	}
	if err != nil {
		return fmt.Errorf("failed to show summary: %w", err)
	}
	return nil
}
