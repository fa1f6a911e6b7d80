package bot

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// DashCommand is the slash command that opens the create dialog.
const DashCommand = "/dash"

// handleEvents handles incoming Socket Mode envelopes
func (s *Service) handleEvents() {
	for {
		select {
		case envelope := <-s.socketClient.Events:
			switch envelope.Type {
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					s.logger.Warn("Failed to type assert events API event")
					continue
				}
				s.socketClient.Ack(*envelope.Request)
				s.handleEventsAPIEvent(newRequestID(), &eventsAPIEvent)

			case socketmode.EventTypeSlashCommand:
				slashCommand, ok := envelope.Data.(slack.SlashCommand)
				if !ok {
					s.logger.Warn("Failed to type assert slash command")
					continue
				}
				s.socketClient.Ack(*envelope.Request)
				s.handleSlashCommand(newRequestID(), &slashCommand)

			case socketmode.EventTypeInteractive:
				callback, ok := envelope.Data.(slack.InteractionCallback)
				if !ok {
					s.logger.Warn("Failed to type assert interaction callback")
					continue
				}
				// View submissions answer validation errors in the ack itself,
				// so each one is handled off the loop.
				req := *envelope.Request
				s.tasks.Add(1)
				go func() {
					defer s.tasks.Done()
					if response := s.handleInteraction(context.Background(), newRequestID(), &callback); response != nil {
						s.socketClient.Ack(req, response)
					} else {
						s.socketClient.Ack(req)
					}
				}()

			case socketmode.EventTypeConnecting, socketmode.EventTypeConnected, socketmode.EventTypeHello:
				s.logger.Debug("Socket Mode status", zap.String("type", string(envelope.Type)))

			case socketmode.EventTypeConnectionError, socketmode.EventTypeInvalidAuth:
				s.logger.Warn("Socket Mode connection problem", zap.String("type", string(envelope.Type)))

			default:
				s.logger.Debug("Received unhandled event", zap.String("type", string(envelope.Type)))
			}

		case <-s.stopCh:
			return
		}
	}
}

// handleEventsAPIEvent routes callback events. Work runs after the ack.
func (s *Service) handleEventsAPIEvent(requestID string, event *slackevents.EventsAPIEvent) {
	teamID, enterpriseID := event.TeamID, event.EnterpriseID

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppHomeOpenedEvent:
		if ev.Tab != "home" {
			return
		}
		s.async(requestID, "app_home_opened", func(ctx context.Context) error {
			ws, err := s.workspaces.Resolve(ctx, teamID, enterpriseID)
			if err != nil {
				return err
			}
			return s.workflow.PublishHome(ctx, ws, ev.User)
		})

	case *slackevents.AppUninstalledEvent:
		s.async(requestID, "app_uninstalled", func(ctx context.Context) error {
			return s.workspaces.Uninstall(ctx, teamID, enterpriseID)
		})

	case *slackevents.TokensRevokedEvent:
		if len(ev.Tokens.Bot) == 0 {
			s.logger.Debug("User tokens revoked", zap.String("team_id", teamID))
			return
		}
		s.async(requestID, "tokens_revoked", func(ctx context.Context) error {
			return s.workspaces.Uninstall(ctx, teamID, enterpriseID)
		})

	default:
		s.logger.Debug("Unhandled callback event",
			zap.String("type", event.InnerEvent.Type),
			zap.String("request_id", requestID))
	}
}

// handleSlashCommand opens the create dialog for /dash.
func (s *Service) handleSlashCommand(requestID string, command *slack.SlashCommand) {
	s.logger.Info("Received slash command",
		zap.String("command", command.Command),
		zap.String("user_id", command.UserID),
		zap.String("channel_id", command.ChannelID),
		zap.String("request_id", requestID))

	if command.Command != DashCommand {
		s.logger.Warn("Unknown slash command", zap.String("command", command.Command))
		return
	}

	cmd := *command
	s.async(requestID, "slash_command", func(ctx context.Context) error {
		ws, err := s.workspaces.Resolve(ctx, cmd.TeamID, cmd.EnterpriseID)
		if err != nil {
			return err
		}
		return s.workflow.OpenCreateModal(ctx, ws, cmd.TriggerID, cmd.UserID, cmd.Text, cmd.ChannelID)
	})
}

// handleInteraction handles block actions and view submissions. The
// returned value, if any, must be sent back as the acknowledgement.
func (s *Service) handleInteraction(ctx context.Context, requestID string, callback *slack.InteractionCallback) interface{} {
	s.logger.Debug("Received interaction",
		zap.String("type", string(callback.Type)),
		zap.String("user_id", callback.User.ID),
		zap.String("request_id", requestID))

	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		s.handleBlockActions(requestID, callback)
		return nil
	case slack.InteractionTypeViewSubmission:
		return s.handleViewSubmission(ctx, requestID, callback)
	default:
		s.logger.Debug("Unhandled interaction type", zap.String("type", string(callback.Type)))
		return nil
	}
}
