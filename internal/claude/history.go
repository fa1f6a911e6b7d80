package claude

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/slackapi"
)

const historyPageSize = 200

// FetchChannelMessages reads the latest page of channel history and returns
// it oldest first.
func FetchChannelMessages(ctx context.Context, api slackapi.API, channelID string) ([]slack.Message, error) {
	resp, err := api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     historyPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", channelID, err)
	}

	// conversations.history is newest first.
	messages := make([]slack.Message, len(resp.Messages))
	for i, m := range resp.Messages {
		messages[len(resp.Messages)-1-i] = m
	}
	return messages, nil
}
