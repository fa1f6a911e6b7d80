// Package workflow implements the channel lifecycle: creating managed
// channels, closing them and broadcasting their outcome before archival.
package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/directory"
	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/metrics"
	"github.com/ghabxph/dash-on-slack/internal/notifications"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/textutil"
)

const (
	PathDirect    = "direct"
	PathHome      = "home"
	PathBroadcast = "broadcast"

	defaultLookupConcurrency = 8
)

// Summarizer turns channel messages into an outcome summary.
type Summarizer interface {
	Summarize(ctx context.Context, messages []textutil.Message) (string, error)
}

// Service runs the workflows. It holds no per-request state; the directory
// cache and the bot identities live in their own components.
type Service struct {
	prefix     string
	auth       *auth.Service
	directory  *directory.Cache
	summarizer Summarizer
	notifier   *notifications.Notifier
	reporter   *logging.DualLogger
	metrics    *metrics.Metrics
	logger     *zap.Logger

	lookupConcurrency int
}

// Deps are the collaborators of a Service.
type Deps struct {
	ChannelPrefix string
	Auth          *auth.Service
	Directory     *directory.Cache
	Summarizer    Summarizer
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

func NewService(deps Deps) *Service {
	logger := deps.Logger.With(zap.String("component", "workflow"))
	return &Service{
		prefix:            deps.ChannelPrefix,
		auth:              deps.Auth,
		directory:         deps.Directory,
		summarizer:        deps.Summarizer,
		notifier:          notifications.NewNotifier(logger),
		reporter:          logging.NewDualLogger(logger),
		metrics:           deps.Metrics,
		logger:            logger,
		lookupConcurrency: defaultLookupConcurrency,
	}
}

// archive archives channelID and posts the admin notice when the bot lacks
// permission. Other failures are only logged.
func (s *Service) archive(ctx context.Context, ws slackapi.Workspace, channelID, path string) error {
	err := ws.API.ArchiveConversationContext(ctx, channelID)
	if err == nil {
		s.metrics.ChannelsClosed.WithLabelValues(path).Inc()
		s.logger.Info("Channel archived",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", channelID),
			zap.String("path", path))
		return nil
	}

	code := slackapi.ErrorCode(err)
	if code == "" {
		code = "unknown"
	}
	s.metrics.ArchiveFailures.WithLabelValues(code).Inc()

	errCtx := logging.CreateErrorContext(channelID, "", "workflow", "archive").WithTeam(ws.TeamID)
	s.reporter.LogError(errCtx, err, "Failed to archive channel")

	if slackapi.IsPermissionError(err) {
		s.notifier.ArchiveDenied(ctx, ws.API, channelID)
	}
	return err
}
