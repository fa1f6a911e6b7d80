package bot

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/repository"
)

const authorizeURL = "https://slack.com/oauth/v2/authorize"

// stateStore hands out single-use OAuth state values.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]time.Time
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, issued: make(map[string]time.Time), now: time.Now}
}

func (s *stateStore) Issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := uuid.NewString()
	s.issued[state] = s.now()
	return state
}

// Sweep forgets states that were never redeemed.
func (s *stateStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for state, at := range s.issued {
		if now.Sub(at) > s.ttl {
			delete(s.issued, state)
			removed++
		}
	}
	return removed
}

// Consume reports whether state was issued and has not expired. A state can
// only be consumed once.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return s.now().Sub(at) <= s.ttl
}

// installURL is where /slack/install sends the browser.
func (s *Service) installURL(state string) string {
	q := url.Values{}
	q.Set("client_id", s.config.SlackClientID)
	q.Set("scope", strings.Join(s.config.SlackScopes, ","))
	q.Set("state", state)
	if s.config.SlackRedirectURL != "" {
		q.Set("redirect_uri", s.config.SlackRedirectURL)
	}
	return authorizeURL + "?" + q.Encode()
}

func (s *Service) handleInstall(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.installURL(s.oauthStates.Issue()), http.StatusFound)
}

func (s *Service) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		s.logger.Info("Install cancelled", zap.String("error", errCode))
		http.Error(w, "Installation was cancelled", http.StatusBadRequest)
		return
	}
	if !s.oauthStates.Consume(query.Get("state")) {
		s.logger.Warn("OAuth redirect with unknown state")
		http.Error(w, "Invalid or expired state", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	resp, err := slack.GetOAuthV2ResponseContext(r.Context(), s.httpClient,
		s.config.SlackClientID, s.config.SlackClientSecret, code, s.config.SlackRedirectURL)
	if err != nil {
		s.logger.Error("OAuth exchange failed", zap.Error(err))
		http.Error(w, "Installation failed", http.StatusBadGateway)
		return
	}

	inst := &repository.Installation{
		TeamID:              resp.Team.ID,
		TeamName:            resp.Team.Name,
		EnterpriseID:        resp.Enterprise.ID,
		IsEnterpriseInstall: resp.Team.ID == "" && resp.Enterprise.ID != "",
		AppID:               resp.AppID,
		BotToken:            resp.AccessToken,
		BotUserID:           resp.BotUserID,
		BotScopes:           resp.Scope,
		InstallerUserID:     resp.AuthedUser.ID,
		InstalledAt:         time.Now().UTC(),
	}
	if err := s.workspaces.Install(r.Context(), inst); err != nil {
		s.logger.Error("Failed to store installation", zap.Error(err))
		http.Error(w, "Installation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Dash is installed. You can close this window and type /dash in Slack."))
}
