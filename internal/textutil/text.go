// Package textutil holds the pure text helpers shared by the channel workflows:
// channel-name slugs, user-mention parsing and the id/display-name round trip
// used when channel history is handed to the summarizer.
package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var (
	slugStripPattern  = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugSpacePattern  = regexp.MustCompile(`[\s_]+`)
	slugHyphenPattern = regexp.MustCompile(`-+`)
	mentionPattern    = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)
)

// Message is a single channel message reduced to its author and text.
type Message struct {
	User string
	Text string
}

// Slugify turns free text into a channel-name slug. An empty result means the
// input had no usable letters or digits.
func Slugify(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = slugStripPattern.ReplaceAllString(s, "")
	s = slugSpacePattern.ReplaceAllString(s, "-")
	s = slugHyphenPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParseUserIDs returns the ids of every well-formed <@ID> or <@ID|label>
// mention in text, in order of appearance. Duplicates are kept.
func ParseUserIDs(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// UniqueIDs removes duplicates while keeping first-seen order.
func UniqueIDs(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ExtractUserIDs collects every author and mentioned user across messages.
func ExtractUserIDs(messages []Message) []string {
	var ids []string
	for _, m := range messages {
		ids = append(ids, m.User)
		ids = append(ids, ParseUserIDs(m.Text)...)
	}
	return UniqueIDs(ids...)
}

// ResolveNamesInMessages swaps author ids and mention tokens for display
// names. Mentions of unknown users are reduced to the bare id.
func ResolveNamesInMessages(messages []Message, names map[string]string) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		user := m.User
		if name, ok := names[user]; ok {
			user = name
		}
		text := mentionPattern.ReplaceAllStringFunc(m.Text, func(token string) string {
			id := mentionPattern.FindStringSubmatch(token)[1]
			if name, ok := names[id]; ok {
				return name
			}
			return id
		})
		out[i] = Message{User: user, Text: text}
	}
	return out
}

// NamesInText keeps the entries of names whose display name occurs in text,
// which is all RestoreUserMentions could ever use.
func NamesInText(text string, names map[string]string) map[string]string {
	used := make(map[string]string)
	for id, name := range names {
		if name != "" && strings.Contains(text, name) {
			used[id] = name
		}
	}
	return used
}

// RestoreUserMentions is the inverse of ResolveNamesInMessages for text that
// came back from the summarizer. Longer names are matched first so a name
// containing a shorter one is never partially replaced. Only whole-word
// occurrences are restored.
func RestoreUserMentions(text string, names map[string]string) string {
	if text == "" || len(names) == 0 {
		return text
	}

	type entry struct {
		name string
		id   string
	}
	entries := make([]entry, 0, len(names))
	for id, name := range names {
		if name == "" {
			continue
		}
		entries = append(entries, entry{name: name, id: id})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].name) != len(entries[j].name) {
			return len(entries[i].name) > len(entries[j].name)
		}
		return entries[i].name < entries[j].name
	})

	// Restored mentions are parked behind non-word placeholders so a shorter
	// name can't match inside a mention that was already produced.
	var pairs []string
	for i, e := range entries {
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(e.name) + `\b`)
		if err != nil {
			continue
		}
		marker := "\x00" + strings.Repeat("\x01", i+1) + "\x00"
		replaced := pattern.ReplaceAllLiteralString(text, marker)
		if replaced == text {
			continue
		}
		text = replaced
		pairs = append(pairs, marker, "<@"+e.id+">")
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
