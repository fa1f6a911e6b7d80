package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/repository"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
)

// APIFactory builds a Slack Web API client for a bot token.
type APIFactory func(token string) slackapi.API

// Workspaces resolves the Slack client to use for an inbound request. Teams
// installed through OAuth use their stored bot token; everything else falls
// back to the configured one.
type Workspaces struct {
	store        repository.InstallationStore
	auth         *auth.Service
	defaultToken string
	newAPI       APIFactory
	logger       *zap.Logger

	mu      sync.Mutex
	clients map[string]slackapi.API
}

func NewWorkspaces(store repository.InstallationStore, authSvc *auth.Service, defaultToken string, newAPI APIFactory, logger *zap.Logger) *Workspaces {
	return &Workspaces{
		store:        store,
		auth:         authSvc,
		defaultToken: defaultToken,
		newAPI:       newAPI,
		logger:       logger,
		clients:      make(map[string]slackapi.API),
	}
}

func (w *Workspaces) client(token string) slackapi.API {
	w.mu.Lock()
	defer w.mu.Unlock()
	api, ok := w.clients[token]
	if !ok {
		api = w.newAPI(token)
		w.clients[token] = api
	}
	return api
}

// fetch returns the installation serving teamID and the key it is stored
// under.
func (w *Workspaces) fetch(ctx context.Context, teamID, enterpriseID string) (string, *repository.Installation, error) {
	if w.store == nil {
		return "", nil, nil
	}
	// A team-level install wins over an org-wide one
	for _, key := range []string{teamID, enterpriseID} {
		if key == "" {
			continue
		}
		inst, err := w.store.Fetch(ctx, key)
		if errors.Is(err, repository.ErrInstallationNotFound) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to load installation %s: %w", key, err)
		}
		return key, inst, nil
	}
	return "", nil, nil
}

// Resolve returns the client bound to teamID.
func (w *Workspaces) Resolve(ctx context.Context, teamID, enterpriseID string) (slackapi.Workspace, error) {
	_, inst, err := w.fetch(ctx, teamID, enterpriseID)
	if err != nil {
		return slackapi.Workspace{}, err
	}

	if inst != nil && inst.BotToken != "" {
		if inst.BotUserID != "" {
			w.auth.Identity(teamID).Set(inst.BotUserID)
		}
		return slackapi.Workspace{TeamID: teamID, API: w.client(inst.BotToken)}, nil
	}

	if w.defaultToken == "" {
		return slackapi.Workspace{}, fmt.Errorf("%w for team %s", repository.ErrInstallationNotFound, teamID)
	}
	return slackapi.Workspace{TeamID: teamID, API: w.client(w.defaultToken)}, nil
}

// Install records a completed OAuth install.
func (w *Workspaces) Install(ctx context.Context, inst *repository.Installation) error {
	if w.store == nil {
		return fmt.Errorf("no installation store configured")
	}
	if err := w.store.Save(ctx, inst); err != nil {
		return fmt.Errorf("failed to save installation: %w", err)
	}
	if inst.BotUserID != "" {
		w.auth.Identity(inst.TeamID).Set(inst.BotUserID)
	}
	w.logger.Info("Workspace installed",
		zap.String("team_id", inst.TeamID),
		zap.String("enterprise_id", inst.EnterpriseID),
		zap.String("installer", inst.InstallerUserID))
	return nil
}

// Uninstall drops the installation Resolve would have used for the team,
// which for an org-wide install is the enterprise one, along with
// everything cached for it. A team that was never stored is not an error.
func (w *Workspaces) Uninstall(ctx context.Context, teamID, enterpriseID string) error {
	if teamID == "" && enterpriseID == "" {
		return fmt.Errorf("uninstall without a team or enterprise id")
	}

	if w.store != nil {
		key, inst, err := w.fetch(ctx, teamID, enterpriseID)
		if err != nil {
			return err
		}
		if inst != nil {
			if err := w.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("failed to delete installation %s: %w", key, err)
			}
			w.mu.Lock()
			delete(w.clients, inst.BotToken)
			w.mu.Unlock()
			w.logger.Info("Workspace uninstalled",
				zap.String("key", key),
				zap.String("team_id", teamID))
		}
	}
	w.auth.Forget(teamID)
	return nil
}
