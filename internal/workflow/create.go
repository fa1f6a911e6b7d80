package workflow

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
	"github.com/ghabxph/dash-on-slack/internal/views"
)

// OpenCreateModal opens the create dialog with the caller and everyone
// mentioned in text preselected.
func (s *Service) OpenCreateModal(ctx context.Context, ws slackapi.Workspace, triggerID, userID, text, originChannelID string) error {
	preselected := textutil.UniqueIDs(append([]string{userID}, textutil.ParseUserIDs(text)...)...)
	if _, err := ws.API.OpenViewContext(ctx, triggerID, views.CreateChannelModal(preselected, originChannelID)); err != nil {
		return fmt.Errorf("failed to open create modal: %w", err)
	}
	return nil
}

// CreateRequest is a submitted create dialog.
type CreateRequest struct {
	UserID          string
	Name            string
	Purpose         string
	Invitees        []string
	OriginChannelID string
}

// CreateResult reports the synchronous part of a creation. FieldErrors is
// set when the dialog must stay open.
type CreateResult struct {
	ChannelID   string
	ChannelName string
	FieldErrors map[string]string
}

// Rejected reports whether the submission was refused.
func (r *CreateResult) Rejected() bool {
	return len(r.FieldErrors) > 0
}

func (s *Service) reject(reason, message string) *CreateResult {
	s.metrics.CreateRejected.WithLabelValues(reason).Inc()
	return &CreateResult{FieldErrors: map[string]string{views.BlockChannelName: message}}
}

// CreateChannel validates the name and creates the channel. Every failure is
// reported as a field error; nothing has been created when it returns one.
func (s *Service) CreateChannel(ctx context.Context, ws slackapi.Workspace, req CreateRequest) *CreateResult {
	slug := textutil.Slugify(req.Name)
	if slug == "" {
		return s.reject("invalid_name", views.ErrNameEmpty)
	}
	name := s.prefix + slug

	channel, err := ws.API.CreateConversationContext(ctx, slack.CreateConversationParams{ChannelName: name})
	if err != nil {
		if slackapi.IsNameTaken(err) {
			s.logger.Info("Channel name taken",
				zap.String("team_id", ws.TeamID),
				zap.String("user_id", req.UserID),
				zap.String("channel_name", name))
			return s.reject("name_taken", views.NameTakenError(name))
		}
		errCtx := logging.CreateErrorContext("", req.UserID, "workflow", "create").WithTeam(ws.TeamID)
		s.reporter.LogError(errCtx, err, "Failed to create channel")
		return s.reject("error", views.ErrCreateRetry)
	}

	s.metrics.ChannelsCreated.Inc()
	s.logger.Info("Channel created",
		zap.String("team_id", ws.TeamID),
		zap.String("user_id", req.UserID),
		zap.String("channel_id", channel.ID),
		zap.String("channel_name", name))

	return &CreateResult{ChannelID: channel.ID, ChannelName: name}
}

// InviteList is the creator followed by the selected invitees, each once.
func InviteList(creatorID string, invitees []string) []string {
	return textutil.UniqueIDs(append([]string{creatorID}, invitees...)...)
}

// SetupChannel runs the steps after creation: topic and purpose, invites,
// the pinned welcome message and the origin notice. It never fails; a
// partial setup is reported in the channel. The return value tells whether
// setup was complete.
func (s *Service) SetupChannel(ctx context.Context, ws slackapi.Workspace, req CreateRequest, channelID string) bool {
	log := s.logger.With(zap.String("team_id", ws.TeamID), zap.String("channel_id", channelID))
	degraded := false

	var g errgroup.Group
	g.Go(func() error {
		if _, err := ws.API.SetTopicOfConversationContext(ctx, channelID, views.ChannelTopic); err != nil {
			return fmt.Errorf("failed to set topic: %w", err)
		}
		return nil
	})
	if req.Purpose != "" {
		g.Go(func() error {
			if _, err := ws.API.SetPurposeOfConversationContext(ctx, channelID, req.Purpose); err != nil {
				return fmt.Errorf("failed to set purpose: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("Channel setup degraded", zap.String("step", "topic"), zap.Error(err))
		degraded = true
	}

	invited := InviteList(req.UserID, req.Invitees)
	if _, err := ws.API.InviteUsersToConversationContext(ctx, channelID, invited...); err != nil {
		log.Warn("Channel setup degraded", zap.String("step", "invite"), zap.Strings("users", invited), zap.Error(err))
		degraded = true
	}

	_, ts, err := ws.API.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(views.WelcomeText(req.UserID), false),
		slack.MsgOptionBlocks(views.WelcomeBlocks(req.UserID, req.Purpose, invited, req.OriginChannelID)...))
	if err != nil {
		log.Warn("Channel setup degraded", zap.String("step", "welcome"), zap.Error(err))
		degraded = true
	} else if err := ws.API.AddPinContext(ctx, channelID, slack.NewRefToMessage(channelID, ts)); err != nil {
		log.Warn("Channel setup degraded", zap.String("step", "pin"), zap.Error(err))
		degraded = true
	}

	if degraded {
		s.notifier.SetupDegraded(ctx, ws.API, channelID)
	}

	if req.OriginChannelID != "" {
		s.notifier.OriginCreated(ctx, ws.API, req.OriginChannelID, req.UserID, channelID, req.Purpose)
	}

	s.directory.Invalidate(ws.TeamID, req.UserID)
	return !degraded
}
