package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/config"
	"github.com/ghabxph/dash-on-slack/internal/directory"
	"github.com/ghabxph/dash-on-slack/internal/logging"
	"github.com/ghabxph/dash-on-slack/internal/metrics"
	"github.com/ghabxph/dash-on-slack/internal/repository"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
	"github.com/ghabxph/dash-on-slack/internal/workflow"
)

// taskTimeout bounds the work done after an envelope has been acknowledged.
const taskTimeout = 2 * time.Minute

// Service represents the main bot service
type Service struct {
	config       *config.Config
	logger       *zap.Logger
	socketClient *socketmode.Client
	httpServer   *http.Server
	httpClient   *http.Client
	authService  *auth.Service
	workspaces   *Workspaces
	workflow     *workflow.Service
	metrics      *metrics.Metrics
	reporter     *logging.DualLogger
	oauthStates  *stateStore
	cleanup      *cleanupService
	actions      map[string]actionHandler
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	tasks        sync.WaitGroup
	startTime    time.Time
}

// Deps are the collaborators built outside the bot.
type Deps struct {
	Store      repository.InstallationStore
	Summarizer workflow.Summarizer
	Metrics    *metrics.Metrics
	// NewAPI builds per-token Slack clients; defaults to slack.New.
	NewAPI APIFactory
	// HTTPClient is used for the OAuth token exchange.
	HTTPClient *http.Client
}

// NewService creates a new bot service
func NewService(cfg *config.Config, deps Deps, logger *zap.Logger) *Service {
	newAPI := deps.NewAPI
	if newAPI == nil {
		newAPI = func(token string) slackapi.API {
			return slack.New(token, slack.OptionDebug(cfg.EnableDebug))
		}
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	authService := auth.NewService(logger)
	cache := directory.New(authService, cfg.ChannelPrefix, cfg.DirectoryCacheTTL, m, logger,
		directory.WithConcurrency(cfg.PinFetchConcurrency))

	service := &Service{
		config:      cfg,
		logger:      logger,
		httpClient:  httpClient,
		authService: authService,
		workspaces:  NewWorkspaces(deps.Store, authService, cfg.SlackBotToken, newAPI, logger),
		workflow: workflow.NewService(workflow.Deps{
			ChannelPrefix: cfg.ChannelPrefix,
			Auth:          authService,
			Directory:     cache,
			Summarizer:    deps.Summarizer,
			Metrics:       m,
			Logger:        logger,
		}),
		metrics:     m,
		reporter:    logging.NewDualLogger(logger),
		oauthStates: newStateStore(10 * time.Minute),
		stopCh:      make(chan struct{}),
		startTime:   time.Now(),
	}

	if cfg.SocketMode {
		api := slack.New(cfg.SlackBotToken, slack.OptionDebug(cfg.EnableDebug), slack.OptionAppLevelToken(cfg.SlackAppToken))
		service.socketClient = socketmode.New(api, socketmode.OptionDebug(cfg.EnableDebug))
	}

	service.cleanup = newCleanupService(cache, service.oauthStates, logger)
	service.registerActions()

	return service
}

// Start starts the bot service
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting Dash bot",
		zap.Bool("socket_mode", s.config.SocketMode),
		zap.String("channel_prefix", s.config.ChannelPrefix),
		zap.String("store_driver", string(s.config.StoreDriver)))

	if s.config.SlackBotToken != "" {
		authResp, err := s.workspaces.client(s.config.SlackBotToken).AuthTestContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to authenticate with Slack: %w", err)
		}
		s.authService.Identity(authResp.TeamID).Set(authResp.UserID)

		s.logger.Info("Bot authenticated",
			zap.String("bot_user_id", authResp.UserID),
			zap.String("team", authResp.Team),
			zap.String("team_id", authResp.TeamID))
	}

	// The HTTP server carries health and metrics in both modes
	s.httpServer = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.startHTTPServer()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cleanup.Start(ctx)
	}()

	if s.socketClient != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleEvents()
		}()

		go func() {
			if err := s.socketClient.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Socket Mode connection ended", zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop stops the bot service and waits for in-flight work.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping Dash bot")

		close(s.stopCh)
		s.cleanup.Stop()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", zap.Error(err))
			}
		}

		s.wg.Wait()
		s.tasks.Wait()

		s.logger.Info("Bot stopped successfully")
	})
}

func (s *Service) startHTTPServer() {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("health_path", s.config.HealthCheckPath))

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		s.logger.Error("HTTP server error", zap.Error(err))
	}
}

// newRequestID tags every inbound envelope in the logs.
func newRequestID() string {
	return uuid.NewString()
}

// async runs fn after the envelope has been acknowledged.
func (s *Service) async(requestID, handler string, fn func(ctx context.Context) error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		start := time.Now()
		defer s.metrics.ObserveHandler(handler, start)

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		err := fn(ctx)
		switch {
		case err == nil:
			s.logger.Debug("Handler finished",
				zap.String("handler", handler),
				zap.String("request_id", requestID),
				zap.Duration("duration", time.Since(start)))
		case errors.Is(err, auth.ErrNotCreator), errors.Is(err, auth.ErrCreatorUnknown):
			s.logger.Info("Action denied",
				zap.String("handler", handler),
				zap.String("request_id", requestID),
				zap.Error(err))
		default:
			errCtx := logging.CreateErrorContext("", "", "bot", handler).WithRequest(requestID)
			s.reporter.LogError(errCtx, err, "Handler failed")
		}
	}()
}
