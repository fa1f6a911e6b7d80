// Package directory answers "which managed channels does this user belong to"
// for the home tab, split into channels they created and channels they are
// only a member of.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ghabxph/dash-on-slack/internal/auth"
	"github.com/ghabxph/dash-on-slack/internal/metrics"
	"github.com/ghabxph/dash-on-slack/internal/slackapi"
)

const listPageSize = 200

// Channel is a managed channel as shown on the home tab.
type Channel struct {
	ID   string
	Name string
}

// Listing is one user's managed channels.
type Listing struct {
	Created  []Channel
	MemberOf []Channel
}

type entry struct {
	listing  Listing
	storedAt time.Time
}

// Cache keeps a short-lived Listing per (team, user). Entries go stale
// lazily: an entry older than the TTL is treated as absent on the next read.
type Cache struct {
	auth        *auth.Service
	prefix      string
	ttl         time.Duration
	concurrency int
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu          sync.Mutex
	entries     map[string]entry
	generations map[string]uint64
	group       singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithConcurrency bounds the number of parallel pin lookups.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a directory cache for channels named with prefix.
func New(authSvc *auth.Service, prefix string, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		auth:        authSvc,
		prefix:      prefix,
		ttl:         ttl,
		concurrency: 8,
		now:         time.Now,
		metrics:     m,
		logger:      logger,
		entries:     make(map[string]entry),
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(teamID, userID string) string {
	return teamID + "/" + userID
}

// Get returns the user's listing, fetching it when there is no fresh entry.
// On failure it returns an empty listing together with the error, and
// nothing is cached.
func (c *Cache) Get(ctx context.Context, ws slackapi.Workspace, userID string) (Listing, error) {
	key := cacheKey(ws.TeamID, userID)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		c.mu.Unlock()
		c.metrics.DirectoryCache.WithLabelValues("hit").Inc()
		return e.listing, nil
	}
	gen := c.generations[key]
	c.mu.Unlock()
	c.metrics.DirectoryCache.WithLabelValues("miss").Inc()

	// Keyed by generation so a Get after Invalidate never joins a fetch that
	// started before it.
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		listing, err := c.Fetch(ctx, ws, userID)
		if err != nil {
			return Listing{}, err
		}
		c.mu.Lock()
		// An invalidation during the fetch wins over the fetched data.
		if c.generations[key] == gen {
			c.entries[key] = entry{listing: listing, storedAt: c.now()}
		}
		c.mu.Unlock()
		return listing, nil
	})
	if err != nil {
		return Listing{}, err
	}
	return v.(Listing), nil
}

// Invalidate drops the user's entry so the next Get fetches again.
func (c *Cache) Invalidate(teamID, userID string) {
	key := cacheKey(teamID, userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generations[key]++
}

// Sweep drops expired entries and reports how many went. Reads already
// ignore them, so this only bounds memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Fetch lists the user's managed channels and classifies each one by its
// recorded creator. It never reads or writes the cache.
func (c *Cache) Fetch(ctx context.Context, ws slackapi.Workspace, userID string) (Listing, error) {
	botUserID, err := c.auth.BotUserID(ctx, ws)
	if err != nil {
		return Listing{}, err
	}

	channels, err := c.listManaged(ctx, ws, userID)
	if err != nil {
		return Listing{}, err
	}
	if len(channels) == 0 {
		return Listing{}, nil
	}

	creators := make([]auth.Creator, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			items, _, err := ws.API.ListPinsContext(gctx, ch.ID)
			if err != nil {
				// One unreadable channel must not hide the others.
				c.logger.Warn("Failed to list pins for directory",
					zap.String("team_id", ws.TeamID),
					zap.String("channel_id", ch.ID),
					zap.Error(err))
				return nil
			}
			creators[i] = auth.CreatorFromPins(items, botUserID)
			return nil
		})
	}
	_ = g.Wait()

	var listing Listing
	for i, ch := range channels {
		if creators[i].Found && creators[i].UserID == userID {
			listing.Created = append(listing.Created, ch)
		} else {
			listing.MemberOf = append(listing.MemberOf, ch)
		}
	}

	c.logger.Debug("Fetched dash channels",
		zap.String("team_id", ws.TeamID),
		zap.String("user_id", userID),
		zap.Int("created", len(listing.Created)),
		zap.Int("member_of", len(listing.MemberOf)))

	return listing, nil
}

func (c *Cache) listManaged(ctx context.Context, ws slackapi.Workspace, userID string) ([]Channel, error) {
	var out []Channel
	cursor := ""
	for {
		page, next, err := ws.API.GetConversationsForUserContext(ctx, &slack.GetConversationsForUserParameters{
			UserID:          userID,
			Cursor:          cursor,
			Types:           []string{"public_channel"},
			Limit:           listPageSize,
			ExcludeArchived: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations for %s: %w", userID, err)
		}
		for _, ch := range page {
			if ch.ID != "" && strings.HasPrefix(ch.Name, c.prefix) {
				out = append(out, Channel{ID: ch.ID, Name: ch.Name})
			}
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}
