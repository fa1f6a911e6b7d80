package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/config"
	"github.com/ghabxph/dash-on-slack/internal/database"
)

var ErrInstallationNotFound = errors.New("no installation found")

// Installation is the credential record written by the OAuth flow. Stores
// treat it as an opaque blob keyed by InstallationKey.
type Installation struct {
	TeamID              string    `json:"teamId"`
	TeamName            string    `json:"teamName,omitempty"`
	EnterpriseID        string    `json:"enterpriseId,omitempty"`
	IsEnterpriseInstall bool      `json:"isEnterpriseInstall,omitempty"`
	AppID               string    `json:"appId,omitempty"`
	BotToken            string    `json:"botToken"`
	BotUserID           string    `json:"botUserId,omitempty"`
	BotScopes           string    `json:"botScopes,omitempty"`
	InstallerUserID     string    `json:"installerUserId,omitempty"`
	InstalledAt         time.Time `json:"installedAt"`
}

// InstallationKey is the enterprise id for org-wide installs and the team id
// otherwise.
func InstallationKey(inst *Installation) string {
	if inst.IsEnterpriseInstall && inst.EnterpriseID != "" {
		return inst.EnterpriseID
	}
	return inst.TeamID
}

// InstallationStore persists one installation per key with last-write-wins
// semantics.
type InstallationStore interface {
	Save(ctx context.Context, inst *Installation) error
	// Fetch returns ErrInstallationNotFound when nothing is stored for key.
	Fetch(ctx context.Context, key string) (*Installation, error)
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	Close() error
}

func notFound(key string) error {
	return fmt.Errorf("%w for %s", ErrInstallationNotFound, key)
}

func encode(inst *Installation) (string, string, error) {
	key := InstallationKey(inst)
	if key == "" {
		return "", "", fmt.Errorf("installation has neither team nor enterprise id")
	}
	raw, err := json.Marshal(inst)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode installation: %w", err)
	}
	return key, string(raw), nil
}

func decode(key, data string) (*Installation, error) {
	var inst Installation
	if err := json.Unmarshal([]byte(data), &inst); err != nil {
		return nil, fmt.Errorf("failed to decode installation %s: %w", key, err)
	}
	return &inst, nil
}

// MemoryStore keeps installations in process memory. It backs single
// workspace deployments and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Save(ctx context.Context, inst *Installation) error {
	key, data, err := encode(inst)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Fetch(ctx context.Context, key string) (*Installation, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(key)
	}
	return decode(key, data)
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// NewInstallationStore opens the backend selected by STORE_DRIVER.
func NewInstallationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (InstallationStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case config.StoreDriverPostgres:
		db, err := database.NewDatabase(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db, logger), nil
	case config.StoreDriverMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
