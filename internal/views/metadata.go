package views

import (
	"encoding/json"
	"strings"
)

// MaxMetadataLength is Slack's limit on a view's private_metadata.
const MaxMetadataLength = 3000

// BroadcastMetadata travels in the broadcast modal's private metadata. The
// name map lets the final submission turn display names in an AI summary
// back into mentions.
type BroadcastMetadata struct {
	ChannelID string            `json:"channelId"`
	UserNames map[string]string `json:"userNames,omitempty"`
}

// Encode serialises the metadata. A bare channel id is enough when there are
// no names to carry.
func (m BroadcastMetadata) Encode() string {
	if len(m.UserNames) == 0 {
		return m.ChannelID
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return m.ChannelID
	}
	return string(raw)
}

// DecodeBroadcastMetadata accepts both the JSON form and a bare channel id.
func DecodeBroadcastMetadata(raw string) BroadcastMetadata {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var m BroadcastMetadata
		if err := json.Unmarshal([]byte(raw), &m); err == nil && m.ChannelID != "" {
			return m
		}
	}
	return BroadcastMetadata{ChannelID: raw}
}
