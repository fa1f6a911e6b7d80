package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ghabxph/dash-on-slack/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

const oauthResponse = `{
	"ok": true,
	"access_token": "xoxb-installed",
	"token_type": "bot",
	"scope": "commands,chat:write",
	"bot_user_id": "UBOT2",
	"app_id": "A1",
	"team": {"id": "T2", "name": "Acme"},
	"enterprise": null,
	"authed_user": {"id": "U1"}
}`

func TestInstallRedirect(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/slack/install")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected a redirect, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location: %v", err)
	}
	q := loc.Query()
	if loc.Host != "slack.com" || q.Get("client_id") != "123.456" || q.Get("scope") != "commands,chat:write" {
		t.Errorf("unexpected authorize url %s", loc)
	}
	if q.Get("state") == "" || q.Get("redirect_uri") != "https://dash.example.com/slack/oauth_redirect" {
		t.Errorf("state and redirect uri should be set, got %s", loc)
	}
}

func TestOAuthRedirectRejectsUnknownState(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/slack/oauth_redirect?code=abc&state=forged")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestOAuthRedirectStoresInstallation(t *testing.T) {
	f := newFixture(t)
	var exchanged url.Values
	f.svc.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		exchanged, _ = url.ParseQuery(string(body))
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(oauthResponse)),
			Request:    r,
		}, nil
	})}

	state := f.svc.oauthStates.Issue()
	rec := f.get("/slack/oauth_redirect?code=abc&state=" + state)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if exchanged.Get("code") != "abc" || exchanged.Get("client_secret") != "client-secret" {
		t.Errorf("unexpected exchange %v", exchanged)
	}

	inst, err := f.store.Fetch(context.Background(), "T2")
	if err != nil {
		t.Fatalf("installation not stored: %v", err)
	}
	if inst.BotToken != "xoxb-installed" || inst.BotUserID != "UBOT2" || inst.TeamName != "Acme" || inst.InstallerUserID != "U1" {
		t.Errorf("unexpected installation %+v", inst)
	}

	// States are single use
	if rec := f.get("/slack/oauth_redirect?code=abc&state=" + state); rec.Code != http.StatusBadRequest {
		t.Errorf("replayed state should be rejected, got %d", rec.Code)
	}
}

func TestOAuthRedirectCancelled(t *testing.T) {
	f := newFixture(t)
	state := f.svc.oauthStates.Issue()

	rec := f.get("/slack/oauth_redirect?error=access_denied&state=" + state)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestOAuthRoutesNeedClientCredentials(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.SlackClientID = "" })

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slack/install", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("install should not be offered without OAuth credentials, got %d", rec.Code)
	}
}

func TestStateStoreExpiry(t *testing.T) {
	now := time.Now()
	s := newStateStore(time.Minute)
	s.now = func() time.Time { return now }

	state := s.Issue()
	now = now.Add(2 * time.Minute)
	if s.Consume(state) {
		t.Error("expired state should not be accepted")
	}
	if s.Consume("never-issued") {
		t.Error("unknown state should not be accepted")
	}
}
