package views

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/auth"
)

func closeConfirm() *slack.ConfirmationBlockObject {
	return slack.NewConfirmationBlockObject(
		plain("Close this channel?"),
		mrkdwn("This will archive the channel. This action cannot be undone."),
		plain("Close it"),
		plain("Cancel"),
	)
}

func mentions(userIDs []string) string {
	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = fmt.Sprintf("<@%s>", id)
	}
	return strings.Join(parts, ", ")
}

// WelcomeText is the fallback text of the pinned welcome message. Creator
// lookups parse it, so it must stay in this shape.
func WelcomeText(creatorID string) string {
	return auth.CreatorText(creatorID)
}

// WelcomeBlocks renders the pinned welcome message. The broadcast button
// carries the origin channel so the dialog can suggest it as destination.
func WelcomeBlocks(creatorID, purpose string, invited []string, originChannelID string) []slack.Block {
	header := fmt.Sprintf("*<@%s> %s*", creatorID, auth.CreatorPhrase)
	if purpose != "" {
		header += fmt.Sprintf("\n>*Purpose:* %s", purpose)
	}

	closeButton := slack.NewButtonBlockElement(ActionCloseChannel, "", plain(LabelClose)).
		WithStyle(slack.StyleDanger).
		WithConfirm(closeConfirm())
	broadcastButton := slack.NewButtonBlockElement(ActionBroadcastAndClose, originChannelID, plain(LabelBroadcastClose))

	return []slack.Block{
		slack.NewSectionBlock(mrkdwn(header), nil, nil),
		slack.NewSectionBlock(mrkdwn("*Invited:* "+mentions(invited)), nil, nil),
		slack.NewDividerBlock(),
		slack.NewActionBlock("", closeButton, broadcastButton),
	}
}

// OriginNoticeBlocks points the channel /dash was run from at the new channel.
func OriginNoticeBlocks(creatorID, channelID, purpose string) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(mrkdwn(fmt.Sprintf("<@%s> created a new dash channel: <#%s>", creatorID, channelID)), nil, nil),
	}
	if purpose != "" {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn("*Purpose:* "+purpose), nil, nil))
	}
	blocks = append(blocks, slack.NewContextBlock("", mrkdwn("Created with /dash")))
	return blocks
}

// QuoteOutcome renders outcome as a Slack block quote.
func QuoteOutcome(outcome string) string {
	return ">" + strings.ReplaceAll(outcome, "\n", "\n>")
}

// OutcomeText is the fallback text of the broadcast post.
func OutcomeText(sourceChannelID, outcome string) string {
	return fmt.Sprintf("Dash channel <#%s> has wrapped up. Outcome: %s", sourceChannelID, outcome)
}

// OutcomeBlocks renders the broadcast post in the destination channel.
func OutcomeBlocks(sourceChannelID, outcome, closerID string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(mrkdwn(fmt.Sprintf("<#%s> has wrapped up.", sourceChannelID)), nil, nil),
		slack.NewSectionBlock(mrkdwn("*Outcome:*\n"+QuoteOutcome(outcome)), nil, nil),
		slack.NewContextBlock("", mrkdwn(fmt.Sprintf("Closed by <@%s>", closerID))),
	}
}

// ClosedText is posted in a channel that was closed directly.
func ClosedText(userID string) string {
	return fmt.Sprintf("This channel was closed by <@%s>", userID)
}

// BroadcastClosedText is posted in a channel closed through a broadcast.
func BroadcastClosedText(userID, destinationName string) string {
	if destinationName == "" {
		destinationName = "unknown"
	}
	return fmt.Sprintf("This channel was closed by <@%s>. Outcome was shared to #%s.", userID, destinationName)
}
