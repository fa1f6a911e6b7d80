// Package views builds the Block Kit payloads the bot sends: the create and
// broadcast modals, the in-channel messages and the home tab.
package views

// Callback ids of the modals.
const (
	CallbackCreateChannel = "create_channel"
	CallbackBroadcast     = "broadcast_submit"
)

// Block and action ids read back from view submissions.
const (
	BlockChannelName  = "channel_name"
	ActionChannelName = "channel_name_input"
	BlockInviteUsers  = "invite_users"
	ActionInviteUsers = "invite_users_input"
	BlockPurpose      = "purpose"
	ActionPurpose     = "purpose_input"

	BlockDestination  = "destination_channel"
	ActionDestination = "destination_channel_input"
	BlockOutcome      = "outcome"
	ActionOutcome     = "outcome_input"
	BlockAIActions    = "ai_actions"
	BlockOutcomeBusy  = "outcome_loading"
)

// Button action ids. Home tab ids carry the channel id after the prefix.
const (
	ActionCloseChannel        = "close_channel"
	ActionBroadcastAndClose   = "broadcast_and_close"
	ActionGenerateSummary     = "generate_ai_summary"
	ActionHomeCreate          = "home_create_dash"
	ActionHomeJumpPrefix      = "home_jump_"
	ActionHomeClosePrefix     = "home_close_"
	ActionHomeBroadcastPrefix = "home_broadcast_"
)

// User-facing copy.
const (
	LabelCreate         = "Create a temporary channel"
	LabelClose          = "Close Channel"
	LabelBroadcastClose = "Broadcast & Close"

	HomeHeading     = "Dash: Temporary channels"
	HomeDescription = "Quickly spin up a temporary channel with the right people. \n\nTo create one, type `/dash` in any channel, or use the button below."

	ChannelTopic = "Temporary channel created by the Dash app. Use the buttons in the pinned message to close."
	OriginText   = "A new dash channel was created."

	ErrArchivePermission = "I don't have permission to archive this channel. A workspace admin will need to archive it manually."
	ErrChannelSetup      = "There was an issue setting up this channel fully. Some users may need to be invited manually."

	ErrNameEmpty   = "Channel name must contain at least one letter or number."
	ErrNameTaken   = "A channel named #%s already exists. Pick a different name."
	ErrCreateRetry = "Failed to create channel. Please try again."

	ErrNotCreator      = "Only the channel creator can close this channel."
	ErrCreatorUnknown  = "Unable to verify channel creator. Please try again."
	ErrSummaryPending  = "Please wait for the summary to finish generating."
	ErrBroadcastFailed = "Couldn't share the outcome, so the channel was left open. Please try again."

	SummaryLoading  = "Generating summary..."
	SummaryEmpty    = "There are no messages in this channel to summarise yet."
	SummaryNoAPIKey = "AI summaries are not configured. Ask a workspace admin to set ANTHROPIC_API_KEY."
	SummaryFailed   = "Couldn't generate a summary. Try again or write the outcome manually."
)
