package bot

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/version"
)

// Router builds the HTTP surface. Slack endpoints are only mounted in HTTP
// mode; in Socket Mode the server carries health, metrics and install.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get(s.config.HealthCheckPath, s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/version", s.handleVersion)

	if !s.config.SocketMode {
		r.Group(func(r chi.Router) {
			r.Use(s.verifyRequest)
			r.Post("/slack/events", s.handleSlackEvents)
			r.Post("/slack/commands", s.handleSlashCommands)
			r.Post("/slack/interactions", s.handleInteractions)
		})
	}

	if s.config.OAuthEnabled() {
		r.Get("/slack/install", s.handleInstall)
		r.Get("/slack/oauth_redirect", s.handleOAuthRedirect)
	}

	return r
}

func (s *Service) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		}()

		next.ServeHTTP(ww, r)
	})
}

// verifyRequest rejects requests that were not signed by Slack and hands the
// body on untouched.
func (s *Service) verifyRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			s.logger.Error("Failed to read request body", zap.Error(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if !s.verifySlackSignature(r.Header, body) {
			s.logger.Warn("Invalid Slack signature", zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// verifySlackSignature checks the v0 request signature and its five minute
// replay window. Without a signing secret nothing verifies.
func (s *Service) verifySlackSignature(headers http.Header, body []byte) bool {
	if s.config.SlackSigningSecret == "" {
		return false
	}

	verifier, err := slack.NewSecretsVerifier(headers, s.config.SlackSigningSecret)
	if err != nil {
		return false
	}
	if _, err := verifier.Write(body); err != nil {
		return false
	}
	return verifier.Ensure() == nil
}

func (s *Service) handleSlackEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.logger.Error("Failed to parse Slack event", zap.Error(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	s.logger.Debug("Received Slack event", zap.String("type", eventsAPIEvent.Type))

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			s.logger.Error("Failed to unmarshal challenge", zap.Error(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge.Challenge))
		s.logger.Info("Responded to URL verification challenge")

	case slackevents.CallbackEvent:
		s.handleEventsAPIEvent(newRequestID(), &eventsAPIEvent)
		w.WriteHeader(http.StatusOK)

	default:
		s.logger.Debug("Unhandled event type", zap.String("type", eventsAPIEvent.Type))
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Service) handleSlashCommands(w http.ResponseWriter, r *http.Request) {
	command, err := slack.SlashCommandParse(r)
	if err != nil {
		s.logger.Error("Failed to parse slash command", zap.Error(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	s.handleSlashCommand(newRequestID(), &command)
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(r.PostFormValue("payload")), &callback); err != nil {
		s.logger.Error("Failed to parse interaction payload", zap.Error(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	response := s.handleInteraction(r.Context(), newRequestID(), &callback)
	if response == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":      "healthy",
		"uptime":      time.Since(s.startTime).String(),
		"socket_mode": s.config.SocketMode,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"app":    "dash-on-slack",
		"uptime": time.Since(s.startTime).String(),
	}
	for k, v := range version.GetVersionInfo() {
		info[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
