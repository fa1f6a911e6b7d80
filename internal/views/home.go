package views

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/ghabxph/dash-on-slack/internal/directory"
)

const (
	homeCreatedTitle = "Channels you created"
	homeCreatedEmpty = "_You haven't created any dash channels yet._"
	homeMemberTitle  = "Your dash channels"
	homeMemberEmpty  = "_You're not a member of any other dash channels._"
)

// JumpURL deep-links into a channel from the home tab.
func JumpURL(channelID string) string {
	return "https://slack.com/app_redirect?channel=" + channelID
}

func channelSection(title string, channels []directory.Channel, emptyText string, owned bool) []slack.Block {
	blocks := []slack.Block{slack.NewHeaderBlock(plain(title))}
	if len(channels) == 0 {
		return append(blocks, slack.NewSectionBlock(mrkdwn(emptyText), nil, nil))
	}

	for _, ch := range channels {
		jump := slack.NewButtonBlockElement(ActionHomeJumpPrefix+ch.ID, ch.ID, plain("Jump to"))
		jump.URL = JumpURL(ch.ID)
		elements := []slack.BlockElement{jump}

		if owned {
			broadcast := slack.NewButtonBlockElement(ActionHomeBroadcastPrefix+ch.ID, ch.ID, plain(LabelBroadcastClose))
			closeButton := slack.NewButtonBlockElement(ActionHomeClosePrefix+ch.ID, ch.ID, plain("Close")).
				WithStyle(slack.StyleDanger).
				WithConfirm(closeConfirm())
			elements = append(elements, broadcast, closeButton)
		}

		blocks = append(blocks,
			slack.NewSectionBlock(mrkdwn(fmt.Sprintf("<#%s>", ch.ID)), nil, nil),
			slack.NewActionBlock("", elements...),
		)
	}
	return blocks
}

// HomeView renders a user's home tab from their directory listing.
func HomeView(listing directory.Listing) slack.HomeTabViewRequest {
	create := slack.NewButtonBlockElement(ActionHomeCreate, "", plain(LabelCreate)).
		WithStyle(slack.StylePrimary)

	blocks := []slack.Block{
		slack.NewHeaderBlock(plain(HomeHeading)),
		slack.NewSectionBlock(mrkdwn(HomeDescription), nil, nil),
		slack.NewDividerBlock(),
		slack.NewActionBlock("", create),
		slack.NewDividerBlock(),
	}
	blocks = append(blocks, channelSection(homeCreatedTitle, listing.Created, homeCreatedEmpty, true)...)
	blocks = append(blocks, slack.NewDividerBlock())
	blocks = append(blocks, channelSection(homeMemberTitle, listing.MemberOf, homeMemberEmpty, false)...)

	return slack.HomeTabViewRequest{
		Type:   slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: blocks},
	}
}
