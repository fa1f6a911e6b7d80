package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/directory"
)

const cleanupInterval = 5 * time.Minute

// cleanupService periodically drops expired directory entries and OAuth
// states that were never redeemed.
type cleanupService struct {
	directory *directory.Cache
	states    *stateStore
	logger    *zap.Logger
	interval  time.Duration
	stopCh    chan struct{}
}

// newCleanupService creates a new cleanup service
func newCleanupService(cache *directory.Cache, states *stateStore, logger *zap.Logger) *cleanupService {
	return &cleanupService{
		directory: cache,
		states:    states,
		logger:    logger,
		interval:  cleanupInterval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs until ctx is done or Stop is called.
func (c *cleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("Starting cleanup service", zap.Duration("interval", c.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.runCleanup()
		}
	}
}

// Stop stops the cleanup service
func (c *cleanupService) Stop() {
	close(c.stopCh)
}

func (c *cleanupService) runCleanup() (entries, states int) {
	entries = c.directory.Sweep()
	states = c.states.Sweep()
	if entries > 0 || states > 0 {
		c.logger.Debug("Cleanup finished",
			zap.Int("directory_entries", entries),
			zap.Int("oauth_states", states))
	}
	return entries, states
}
