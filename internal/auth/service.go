package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
)

// CreatorPhrase is the sentence the welcome message carries after the
// creator's mention. Existing channels are recognised by it, so it must not
// change.
const CreatorPhrase = "created this temporary channel."

var creatorPattern = regexp.MustCompile(`<@(\w+)> ` + regexp.QuoteMeta(CreatorPhrase))

var (
	// ErrNotCreator is returned when the caller is not the recorded creator.
	ErrNotCreator = errors.New("only the channel creator can close this channel")
	// ErrCreatorUnknown is returned when the creator could not be determined.
	ErrCreatorUnknown = errors.New("unable to verify channel creator")
)

// CreatorText is the plain-text welcome line that records who created a channel.
func CreatorText(userID string) string {
	return fmt.Sprintf("<@%s> %s", userID, CreatorPhrase)
}

// Creator is the result of scanning a channel's pins.
type Creator struct {
	UserID string
	Found  bool
}

// CreatorFromPins returns the creator recorded by the first bot-authored
// pinned message matching the creator phrase.
func CreatorFromPins(items []slack.Item, botUserID string) Creator {
	for _, item := range items {
		if item.Message == nil || item.Message.User != botUserID {
			continue
		}
		if m := creatorPattern.FindStringSubmatch(item.Message.Text); m != nil {
			return Creator{UserID: m[1], Found: true}
		}
	}
	return Creator{}
}

// Identity resolves the bot's own user id once per client and remembers it.
type Identity struct {
	mu        sync.Mutex
	botUserID string
}

// BotUserID returns the bot user id, calling auth.test on first use. A
// failed lookup is not remembered.
func (i *Identity) BotUserID(ctx context.Context, api slackapi.API) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.botUserID != "" {
		return i.botUserID, nil
	}
	resp, err := api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	i.botUserID = resp.UserID
	return i.botUserID, nil
}

// Set primes the identity, e.g. from an installation record.
func (i *Identity) Set(botUserID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.botUserID = botUserID
}

// Service decides who may perform destructive actions on managed channels.
// Bot identities are remembered per workspace.
type Service struct {
	mu         sync.Mutex
	identities map[string]*Identity
	logger     *zap.Logger
}

// NewService creates a new authorization service
func NewService(logger *zap.Logger) *Service {
	return &Service{
		identities: make(map[string]*Identity),
		logger:     logger,
	}
}

// Identity returns the identity cell for a workspace.
func (s *Service) Identity(teamID string) *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.identities[teamID]
	if !ok {
		id = &Identity{}
		s.identities[teamID] = id
	}
	return id
}

// Forget drops the remembered identity, e.g. after an uninstall.
func (s *Service) Forget(teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, teamID)
}

// BotUserID resolves the bot user id for the workspace.
func (s *Service) BotUserID(ctx context.Context, ws slackapi.Workspace) (string, error) {
	return s.Identity(ws.TeamID).BotUserID(ctx, ws.API)
}

// CreatorOf looks up the recorded creator of a channel.
func (s *Service) CreatorOf(ctx context.Context, ws slackapi.Workspace, channelID string) (Creator, error) {
	botUserID, err := s.BotUserID(ctx, ws)
	if err != nil {
		return Creator{}, err
	}
	items, _, err := ws.API.ListPinsContext(ctx, channelID)
	if err != nil {
		return Creator{}, fmt.Errorf("failed to list pins for %s: %w", channelID, err)
	}
	return CreatorFromPins(items, botUserID), nil
}

// AuthorizeClose returns nil only when userID is the recorded creator of
// channelID. Lookup failures return ErrCreatorUnknown.
func (s *Service) AuthorizeClose(ctx context.Context, ws slackapi.Workspace, channelID, userID string) error {
	creator, err := s.CreatorOf(ctx, ws, channelID)
	if err != nil {
		s.logger.Error("Failed to verify channel creator",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", channelID),
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrCreatorUnknown, err)
	}
	if !creator.Found || creator.UserID != userID {
		s.logger.Warn("Unauthorized close attempt",
			zap.String("team_id", ws.TeamID),
			zap.String("channel_id", channelID),
			zap.String("user_id", userID),
			zap.String("creator_id", creator.UserID))
		return ErrNotCreator
	}
	return nil
}
