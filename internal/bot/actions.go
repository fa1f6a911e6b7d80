package bot

import (
	"context"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/views"
	"github.com/ghabxph/dash-on-slack/internal/workflow"
)

// submissionTimeout keeps the synchronous part of a view submission inside
// Slack's three second acknowledgement window.
const submissionTimeout = 2500 * time.Millisecond

// Verbs of the home tab buttons whose action ids embed a channel id.
const (
	verbHomeJump      = "home_jump"
	verbHomeClose     = "home_close"
	verbHomeBroadcast = "home_broadcast"
)

var actionPrefixes = []struct {
	prefix string
	verb   string
}{
	{views.ActionHomeJumpPrefix, verbHomeJump},
	{views.ActionHomeClosePrefix, verbHomeClose},
	{views.ActionHomeBroadcastPrefix, verbHomeBroadcast},
}

// actionRef is a parsed action id.
type actionRef struct {
	Verb      string
	ChannelID string
}

// parseAction splits "home_close_C123" into its verb and channel id. Ids
// without a known prefix are verbs on their own.
func parseAction(actionID string) actionRef {
	for _, p := range actionPrefixes {
		if id, ok := strings.CutPrefix(actionID, p.prefix); ok && id != "" {
			return actionRef{Verb: p.verb, ChannelID: id}
		}
	}
	return actionRef{Verb: actionID}
}

// actionInput is what a button handler gets to work with.
type actionInput struct {
	callback  *slack.InteractionCallback
	action    *slack.BlockAction
	channelID string
}

type actionHandler func(ctx context.Context, ws slackapi.Workspace, in actionInput) error

func (s *Service) registerActions() {
	s.actions = map[string]actionHandler{
		views.ActionCloseChannel:      s.onCloseChannel,
		views.ActionBroadcastAndClose: s.onBroadcastAndClose,
		views.ActionGenerateSummary:   s.onGenerateSummary,
		views.ActionHomeCreate:        s.onHomeCreate,
		verbHomeJump:                  nil, // URL button, nothing to do
		verbHomeClose:                 s.onHomeClose,
		verbHomeBroadcast:             s.onHomeBroadcast,
	}
}

// handleBlockActions dispatches each button press to its handler.
func (s *Service) handleBlockActions(requestID string, callback *slack.InteractionCallback) {
	for _, action := range callback.ActionCallback.BlockActions {
		ref := parseAction(action.ActionID)
		handler, ok := s.actions[ref.Verb]
		if !ok {
			s.logger.Debug("Unhandled block action", zap.String("action_id", action.ActionID))
			continue
		}
		if handler == nil {
			continue
		}

		in := actionInput{callback: callback, action: action, channelID: ref.ChannelID}
		s.async(requestID, ref.Verb, func(ctx context.Context) error {
			ws, err := s.workspaces.Resolve(ctx, callback.Team.ID, callback.Enterprise.ID)
			if err != nil {
				return err
			}
			return handler(ctx, ws, in)
		})
	}
}

func (s *Service) onCloseChannel(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	return s.workflow.CloseChannel(ctx, ws, in.callback.Channel.ID, in.callback.User.ID)
}

// onBroadcastAndClose opens the dialog; the button value carries the origin
// channel suggested as destination.
func (s *Service) onBroadcastAndClose(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	return s.workflow.OpenBroadcastModal(ctx, ws, in.callback.TriggerID, in.callback.Channel.ID, in.action.Value)
}

func (s *Service) onGenerateSummary(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	view := in.callback.View
	return s.workflow.GenerateSummary(ctx, ws, workflow.SummaryRequest{
		ViewID:               view.ID,
		UserID:               in.callback.User.ID,
		Metadata:             views.DecodeBroadcastMetadata(view.PrivateMetadata),
		DestinationChannelID: stateValue(view.State, views.BlockDestination, views.ActionDestination).SelectedConversation,
	})
}

func (s *Service) onHomeCreate(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	return s.workflow.OpenCreateModal(ctx, ws, in.callback.TriggerID, in.callback.User.ID, "", "")
}

// homeChannel prefers the button value and falls back to the id suffix.
func homeChannel(in actionInput) string {
	if in.action.Value != "" {
		return in.action.Value
	}
	return in.channelID
}

func (s *Service) onHomeClose(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	return s.workflow.CloseFromHome(ctx, ws, homeChannel(in), in.callback.User.ID)
}

func (s *Service) onHomeBroadcast(ctx context.Context, ws slackapi.Workspace, in actionInput) error {
	return s.workflow.OpenBroadcastFromHome(ctx, ws, in.callback.TriggerID, homeChannel(in), in.callback.User.ID)
}

// stateValue reads one input out of a submitted view.
func stateValue(state *slack.ViewState, blockID, actionID string) slack.BlockAction {
	if state == nil {
		return slack.BlockAction{}
	}
	return state.Values[blockID][actionID]
}

func hasStateBlock(state *slack.ViewState, blockID string) bool {
	if state == nil {
		return false
	}
	_, ok := state.Values[blockID]
	return ok
}

// handleViewSubmission validates a submitted dialog synchronously and
// returns field errors to keep it open. Everything else runs after the ack.
func (s *Service) handleViewSubmission(ctx context.Context, requestID string, callback *slack.InteractionCallback) interface{} {
	ctx, cancel := context.WithTimeout(ctx, submissionTimeout)
	defer cancel()

	view := callback.View
	switch view.CallbackID {
	case views.CallbackCreateChannel:
		req := workflow.CreateRequest{
			UserID:          callback.User.ID,
			Name:            stateValue(view.State, views.BlockChannelName, views.ActionChannelName).Value,
			Purpose:         strings.TrimSpace(stateValue(view.State, views.BlockPurpose, views.ActionPurpose).Value),
			Invitees:        stateValue(view.State, views.BlockInviteUsers, views.ActionInviteUsers).SelectedUsers,
			OriginChannelID: view.PrivateMetadata,
		}
		return s.submitCreate(ctx, requestID, callback, req)

	case views.CallbackBroadcast:
		req := workflow.BroadcastRequest{
			UserID:               callback.User.ID,
			Metadata:             views.DecodeBroadcastMetadata(view.PrivateMetadata),
			DestinationChannelID: stateValue(view.State, views.BlockDestination, views.ActionDestination).SelectedConversation,
			Outcome:              stateValue(view.State, views.BlockOutcome, views.ActionOutcome).Value,
			// The loading variant has no outcome input
			SummaryPending: !hasStateBlock(view.State, views.BlockOutcome),
		}
		return s.submitBroadcast(requestID, callback, req)

	default:
		s.logger.Debug("Unhandled view submission", zap.String("callback_id", view.CallbackID))
		return nil
	}
}

func (s *Service) submitCreate(ctx context.Context, requestID string, callback *slack.InteractionCallback, req workflow.CreateRequest) interface{} {
	ws, err := s.workspaces.Resolve(ctx, callback.Team.ID, callback.Enterprise.ID)
	if err != nil {
		s.logger.Error("Failed to resolve workspace",
			zap.String("team_id", callback.Team.ID),
			zap.String("request_id", requestID),
			zap.Error(err))
		return slack.NewErrorsViewSubmissionResponse(map[string]string{views.BlockChannelName: views.ErrCreateRetry})
	}

	result := s.workflow.CreateChannel(ctx, ws, req)
	if result.Rejected() {
		return slack.NewErrorsViewSubmissionResponse(result.FieldErrors)
	}

	s.async(requestID, "create_channel", func(ctx context.Context) error {
		s.workflow.SetupChannel(ctx, ws, req, result.ChannelID)
		return nil
	})
	return nil
}

func (s *Service) submitBroadcast(requestID string, callback *slack.InteractionCallback, req workflow.BroadcastRequest) interface{} {
	if errs := workflow.ValidateBroadcast(req); len(errs) > 0 {
		return slack.NewErrorsViewSubmissionResponse(errs)
	}

	s.async(requestID, "broadcast_submit", func(ctx context.Context) error {
		ws, err := s.workspaces.Resolve(ctx, callback.Team.ID, callback.Enterprise.ID)
		if err != nil {
			return err
		}
		_, err = s.workflow.Broadcast(ctx, ws, req)
		return err
	})
	return nil
}
