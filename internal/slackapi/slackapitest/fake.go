// Package slackapitest provides an in-memory slackapi.API for handler tests.
package slackapitest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/slack-go/slack"
)

// Message is a chat.postMessage or chat.postEphemeral call as seen by the fake.
type Message struct {
	Channel   string
	User      string // set for ephemeral messages
	Text      string
	Blocks    string // raw JSON of the blocks option, if any
	Ephemeral bool
	Timestamp string
}

// View is a views.open / views.update / views.publish call.
type View struct {
	Method    string
	TriggerID string
	ViewID    string
	UserID    string
	Modal     slack.ModalViewRequest
	Home      slack.HomeTabViewRequest
}

// Fake records every call and answers from its configured state. Errors are
// looked up by "Method:channel" first, then by "Method".
type Fake struct {
	mu sync.Mutex

	BotUserID string
	// UserChannelPages is served page by page by GetConversationsForUser.
	UserChannelPages map[string][][]slack.Channel
	Pins             map[string][]slack.Item
	Users            map[string]*slack.User
	ChannelInfo      map[string]*slack.Channel
	History          map[string][]slack.Message
	Errors           map[string]error

	Calls     []string
	Messages  []Message
	Views     []View
	Created   []string
	Topics    map[string]string
	Purposes  map[string]string
	Invites   map[string][]string
	Joined    []string
	Archived  []string
	PinnedTS  map[string][]string
	AuthCalls int

	nextTS int
}

// New returns a Fake with empty state.
func New() *Fake {
	return &Fake{
		BotUserID:        "UBOT",
		UserChannelPages: map[string][][]slack.Channel{},
		Pins:             map[string][]slack.Item{},
		Users:            map[string]*slack.User{},
		ChannelInfo:      map[string]*slack.Channel{},
		History:          map[string][]slack.Message{},
		Errors:           map[string]error{},
		Topics:           map[string]string{},
		Purposes:         map[string]string{},
		Invites:          map[string][]string{},
		PinnedTS:         map[string][]string{},
	}
}

// SlackError builds the error value the real client returns for an API error.
func SlackError(code string) error {
	return slack.SlackErrorResponse{Err: code}
}

// Fail makes method (optionally scoped to a channel) return err.
func (f *Fake) Fail(method, channel string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channel != "" {
		method += ":" + channel
	}
	f.Errors[method] = err
}

// Channel is a convenience constructor for channel fixtures.
func Channel(id, name string) slack.Channel {
	ch := slack.Channel{}
	ch.ID = id
	ch.Name = name
	return ch
}

// PinnedMessage is a convenience constructor for a pinned message item.
func PinnedMessage(channel, user, text string) slack.Item {
	msg := &slack.Message{}
	msg.User = user
	msg.Text = text
	return slack.Item{Type: slack.TYPE_MESSAGE, Channel: channel, Message: msg}
}

func (f *Fake) record(method, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	if err, ok := f.Errors[method+":"+channel]; ok {
		return err
	}
	if err, ok := f.Errors[method]; ok {
		return err
	}
	return nil
}

// CallCount returns how many times method was invoked.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// MessagesTo returns the non-ephemeral messages posted to channel.
func (f *Fake) MessagesTo(channel string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Messages {
		if m.Channel == channel && !m.Ephemeral {
			out = append(out, m)
		}
	}
	return out
}

// Ephemerals returns every ephemeral message.
func (f *Fake) Ephemerals() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Messages {
		if m.Ephemeral {
			out = append(out, m)
		}
	}
	return out
}

// LastView returns the most recent view call, if any.
func (f *Fake) LastView() (View, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Views) == 0 {
		return View{}, false
	}
	return f.Views[len(f.Views)-1], true
}

func (f *Fake) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if err := f.record("AuthTest", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.AuthCalls++
	f.mu.Unlock()
	return &slack.AuthTestResponse{UserID: f.BotUserID, TeamID: "T1"}, nil
}

func (f *Fake) OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	if err := f.record("OpenView", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Views = append(f.Views, View{Method: "OpenView", TriggerID: triggerID, Modal: view})
	return &slack.ViewResponse{}, nil
}

func (f *Fake) UpdateViewContext(ctx context.Context, view slack.ModalViewRequest, externalID, hash, viewID string) (*slack.ViewResponse, error) {
	if err := f.record("UpdateView", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Views = append(f.Views, View{Method: "UpdateView", ViewID: viewID, Modal: view})
	return &slack.ViewResponse{}, nil
}

func (f *Fake) PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error) {
	if err := f.record("PublishView", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Views = append(f.Views, View{Method: "PublishView", UserID: userID, Home: view})
	return &slack.ViewResponse{}, nil
}

func (f *Fake) CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error) {
	if err := f.record("CreateConversation", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created = append(f.Created, params.ChannelName)
	ch := Channel(fmt.Sprintf("CNEW%d", len(f.Created)), params.ChannelName)
	return &ch, nil
}

func (f *Fake) SetTopicOfConversationContext(ctx context.Context, channelID, topic string) (*slack.Channel, error) {
	if err := f.record("SetTopic", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Topics[channelID] = topic
	ch := Channel(channelID, "")
	return &ch, nil
}

func (f *Fake) SetPurposeOfConversationContext(ctx context.Context, channelID, purpose string) (*slack.Channel, error) {
	if err := f.record("SetPurpose", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Purposes[channelID] = purpose
	ch := Channel(channelID, "")
	return &ch, nil
}

func (f *Fake) InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error) {
	if err := f.record("InviteUsers", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invites[channelID] = append([]string(nil), users...)
	ch := Channel(channelID, "")
	return &ch, nil
}

func (f *Fake) JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error) {
	if err := f.record("JoinConversation", channelID); err != nil {
		return nil, "", nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Joined = append(f.Joined, channelID)
	ch := Channel(channelID, "")
	return &ch, "", nil, nil
}

func (f *Fake) ArchiveConversationContext(ctx context.Context, channelID string) error {
	if err := f.record("ArchiveConversation", channelID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Archived = append(f.Archived, channelID)
	return nil
}

func (f *Fake) GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	if err := f.record("GetConversationInfo", input.ChannelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.ChannelInfo[input.ChannelID]; ok {
		return ch, nil
	}
	ch := Channel(input.ChannelID, "")
	return &ch, nil
}

func (f *Fake) GetConversationsForUserContext(ctx context.Context, params *slack.GetConversationsForUserParameters) ([]slack.Channel, string, error) {
	if err := f.record("GetConversationsForUser", ""); err != nil {
		return nil, "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := f.UserChannelPages[params.UserID]
	page := 0
	if params.Cursor != "" {
		n, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return nil, "", SlackError("invalid_cursor")
		}
		page = n
	}
	if page >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(pages) {
		next = strconv.Itoa(page + 1)
	}
	return pages[page], next, nil
}

func (f *Fake) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	if err := f.record("GetConversationHistory", params.ChannelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	resp := &slack.GetConversationHistoryResponse{Messages: f.History[params.ChannelID]}
	resp.Ok = true
	return resp, nil
}

func (f *Fake) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if err := f.record("PostMessage", channelID); err != nil {
		return "", "", err
	}
	msg, err := decode(channelID, options)
	if err != nil {
		return "", "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTS++
	msg.Timestamp = fmt.Sprintf("1700000000.%06d", f.nextTS)
	f.Messages = append(f.Messages, msg)
	return channelID, msg.Timestamp, nil
}

func (f *Fake) PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	if err := f.record("PostEphemeral", channelID); err != nil {
		return "", err
	}
	msg, err := decode(channelID, options)
	if err != nil {
		return "", err
	}
	msg.User = userID
	msg.Ephemeral = true
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, msg)
	return "", nil
}

func (f *Fake) AddPinContext(ctx context.Context, channel string, item slack.ItemRef) error {
	if err := f.record("AddPin", channel); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PinnedTS[channel] = append(f.PinnedTS[channel], item.Timestamp)
	return nil
}

func (f *Fake) ListPinsContext(ctx context.Context, channel string) ([]slack.Item, *slack.Paging, error) {
	if err := f.record("ListPins", channel); err != nil {
		return nil, nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pins[channel], &slack.Paging{}, nil
}

func (f *Fake) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	if err := f.record("GetUserInfo", user); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[user]; ok {
		return u, nil
	}
	return &slack.User{ID: user}, nil
}

func decode(channelID string, options []slack.MsgOption) (Message, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Channel: channelID,
		Text:    values.Get("text"),
		Blocks:  values.Get("blocks"),
	}, nil
}

// BlockTexts returns every text string found in a blocks JSON document. Order
// within a block is not stable.
func BlockTexts(blocksJSON string) []string {
	if blocksJSON == "" {
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal([]byte(blocksJSON), &raw); err != nil {
		return nil
	}
	var out []string
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case map[string]interface{}:
			if txt, ok := t["text"].(string); ok {
				out = append(out, txt)
			}
			for k, child := range t {
				if k == "text" {
					if _, ok := child.(string); ok {
						continue
					}
				}
				walk(child)
			}
		case []interface{}:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(raw)
	return out
}
