package logging

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
)

// DualLogger logs failures to the console and, when there is someone to tell,
// posts an ephemeral notice to the user who triggered them.
type DualLogger struct {
	zapLogger *zap.Logger
}

// ErrorContext contains context information for error logging
type ErrorContext struct {
	ChannelID string
	UserID    string
	TeamID    string
	Component string
	Operation string
	RequestID string
}

// NewDualLogger creates a new dual logger instance
func NewDualLogger(zapLogger *zap.Logger) *DualLogger {
	return &DualLogger{zapLogger: zapLogger}
}

// Fields renders the context as zap fields, skipping empty values.
func (ec *ErrorContext) Fields() []zap.Field {
	if ec == nil {
		return nil
	}
	var fields []zap.Field
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, zap.String(key, val))
		}
	}
	add("component", ec.Component)
	add("operation", ec.Operation)
	add("channel_id", ec.ChannelID)
	add("user_id", ec.UserID)
	add("team_id", ec.TeamID)
	add("request_id", ec.RequestID)
	return fields
}

// LogError logs err with the context fields.
func (dl *DualLogger) LogError(errCtx *ErrorContext, err error, message string) {
	fields := append(errCtx.Fields(), zap.Error(err))
	if code := slackapi.ErrorCode(err); code != "" {
		fields = append(fields, zap.String("slack_error", code))
	}
	dl.zapLogger.Error(message, fields...)
}

// LogAndNotify logs err and tells the acting user userMessage. The notice is
// best effort: a failed post is logged and otherwise ignored.
func (dl *DualLogger) LogAndNotify(ctx context.Context, api slackapi.API, errCtx *ErrorContext, err error, message, userMessage string) {
	dl.LogError(errCtx, err, message)
	dl.Notify(ctx, api, errCtx, userMessage)
}

// Notify posts an ephemeral message to the user in the context channel.
func (dl *DualLogger) Notify(ctx context.Context, api slackapi.API, errCtx *ErrorContext, userMessage string) {
	if errCtx == nil || errCtx.ChannelID == "" || errCtx.UserID == "" || userMessage == "" {
		return
	}

	_, err := api.PostEphemeralContext(ctx, errCtx.ChannelID, errCtx.UserID,
		slack.MsgOptionText(userMessage, false))
	if err != nil {
		dl.zapLogger.Warn("Failed to post ephemeral notice",
			append(errCtx.Fields(), zap.Error(err))...)
	}
}

// CreateErrorContext creates an ErrorContext from common parameters
func CreateErrorContext(channelID, userID, component, operation string) *ErrorContext {
	return &ErrorContext{
		ChannelID: channelID,
		UserID:    userID,
		Component: component,
		Operation: operation,
	}
}

// WithRequest adds the request id to an ErrorContext
func (ec *ErrorContext) WithRequest(requestID string) *ErrorContext {
	ec.RequestID = requestID
	return ec
}

// WithTeam adds the team id to an ErrorContext
func (ec *ErrorContext) WithTeam(teamID string) *ErrorContext {
	ec.TeamID = teamID
	return ec
}
