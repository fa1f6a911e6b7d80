package views

import (
	"fmt"

	"github.com/slack-go/slack"
)

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// CreateChannelModal is the /dash dialog. preselected users are filled into
// the invite picker and originChannelID is carried in the private metadata.
func CreateChannelModal(preselected []string, originChannelID string) slack.ModalViewRequest {
	nameInput := slack.NewPlainTextInputBlockElement(plain("e.g. launch-planning"), ActionChannelName)
	nameBlock := slack.NewInputBlock(BlockChannelName, plain("Channel name"),
		plain(`Will be prefixed with "-". Lowercase, hyphens only.`), nameInput)

	invite := &slack.MultiSelectBlockElement{
		Type:         slack.MultiOptTypeUser,
		Placeholder:  plain("Select people"),
		ActionID:     ActionInviteUsers,
		InitialUsers: preselected,
	}
	inviteBlock := slack.NewInputBlock(BlockInviteUsers, plain("Invite"), nil, invite)

	purposeInput := slack.NewPlainTextInputBlockElement(plain("What is this channel for?"), ActionPurpose)
	purposeBlock := slack.NewInputBlock(BlockPurpose, plain("Purpose"), nil, purposeInput)
	purposeBlock.Optional = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackCreateChannel,
		PrivateMetadata: originChannelID,
		Title:           plain("New temp channel"),
		Submit:          plain("Create"),
		Close:           plain("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			nameBlock,
			inviteBlock,
			purposeBlock,
		}},
	}
}

// BroadcastModalOptions describes one render of the broadcast dialog.
type BroadcastModalOptions struct {
	Metadata             BroadcastMetadata
	DestinationChannelID string
	InitialOutcome       string
	// Loading replaces the outcome field with a placeholder and hides the
	// summary button while a summary is being generated.
	Loading bool
	// HideSummaryButton drops the summary button, e.g. when no API key is set.
	HideSummaryButton bool
}

// BroadcastModal is the Broadcast & Close dialog.
func BroadcastModal(opts BroadcastModalOptions) slack.ModalViewRequest {
	dest := &slack.SelectBlockElement{
		Type:                slack.OptTypeConversations,
		Placeholder:         plain("Select a channel"),
		ActionID:            ActionDestination,
		InitialConversation: opts.DestinationChannelID,
		Filter: &slack.SelectBlockElementFilter{
			Include:         []string{"public"},
			ExcludeBotUsers: true,
		},
	}
	blocks := []slack.Block{
		slack.NewInputBlock(BlockDestination, plain("Post summary to"), nil, dest),
	}

	if opts.Loading {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn("*Outcome / Summary*\n_"+SummaryLoading+"_"), nil, nil,
			slack.SectionBlockOptionBlockID(BlockOutcomeBusy)))
	} else {
		outcome := slack.NewPlainTextInputBlockElement(plain("What was decided or accomplished?"), ActionOutcome)
		outcome.Multiline = true
		outcome.InitialValue = opts.InitialOutcome
		blocks = append(blocks, slack.NewInputBlock(BlockOutcome, plain("Outcome / Summary"), nil, outcome))

		if !opts.HideSummaryButton {
			button := slack.NewButtonBlockElement(ActionGenerateSummary, "", plain("Generate summary with AI"))
			blocks = append(blocks, slack.NewActionBlock(BlockAIActions, button))
		}
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackBroadcast,
		PrivateMetadata: opts.Metadata.Encode(),
		Title:           plain(LabelBroadcastClose),
		Submit:          plain(LabelBroadcastClose),
		Close:           plain("Cancel"),
		Blocks:          slack.Blocks{BlockSet: blocks},
	}
}

// NameTakenError is the field error shown when the channel name collides.
func NameTakenError(channelName string) string {
	return fmt.Sprintf(ErrNameTaken, channelName)
}
