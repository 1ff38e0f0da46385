package chat

import (
	"strings"
	"time"
)

// RawReaction is the loosely-typed reaction shape carried by event payloads.
type RawReaction struct {
	Emoji string           `json:"emoji"`
	Users []RawParticipant `json:"users,omitempty"`
}

// RawAttachment is the untrusted attachment shape carried by event payloads.
type RawAttachment struct {
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Name      string `json:"name,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// NormalizeReactions sanitizes a raw reaction list: entries without an emoji
// are dropped, duplicate emojis are merged, and user lists are deduplicated
// by id. Malformed users are dropped individually, never the whole event.
func NormalizeReactions(raw []RawReaction) []Reaction {
	out := make([]Reaction, 0, len(raw))
	pos := make(map[string]int)
	for _, r := range raw {
		emoji := strings.TrimSpace(r.Emoji)
		if emoji == "" {
			continue
		}
		users := NormalizeParticipants(r.Users)
		if i, ok := pos[emoji]; ok {
			out[i].Users = MergeParticipants(out[i].Users, users)
			continue
		}
		pos[emoji] = len(out)
		out = append(out, Reaction{Emoji: emoji, Users: MergeParticipants(users)})
	}
	return out
}

// NormalizeAttachments sanitizes a raw attachment list. An entry needs at
// least a URL to be usable; ids are defaulted from the URL.
func NormalizeAttachments(raw []RawAttachment) []Attachment {
	out := make([]Attachment, 0, len(raw))
	for _, a := range raw {
		url := strings.TrimSpace(a.URL)
		if url == "" {
			continue
		}
		id := strings.TrimSpace(a.ID)
		if id == "" {
			id = url
		}
		out = append(out, Attachment{
			ID:        id,
			URL:       url,
			Mime:      strings.TrimSpace(a.Mime),
			Name:      strings.TrimSpace(a.Name),
			Thumbnail: strings.TrimSpace(a.Thumbnail),
		})
	}
	return out
}

// parseSentAt parses an ISO-8601 timestamp to epoch milliseconds. Returns
// false when the string is absent or unparseable.
func parseSentAt(sentAt string) (int64, bool) {
	s := strings.TrimSpace(sentAt)
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// mergeMessage folds incoming fields into an existing ledger entry. Later
// values win, except: reactions are replaced only when the incoming list is
// non-nil (a real array on the wire), attachments only when non-empty, and
// status follows statusWins.
func mergeMessage(existing *Message, incoming Message) {
	if incoming.ID != "" {
		existing.ID = incoming.ID
	}
	if incoming.AuthorID != "" {
		existing.AuthorID = incoming.AuthorID
	}
	if incoming.Body != "" {
		existing.Body = incoming.Body
	}
	if incoming.SentAt != "" {
		existing.SentAt = incoming.SentAt
	}
	if incoming.TaskID != "" {
		existing.TaskID = incoming.TaskID
	}
	if incoming.TaskTitle != "" {
		existing.TaskTitle = incoming.TaskTitle
	}
	if incoming.Reactions != nil {
		existing.Reactions = incoming.Reactions
	}
	if len(incoming.Attachments) > 0 {
		existing.Attachments = incoming.Attachments
	}
	if statusWins(incoming.Status, existing.Status) {
		existing.Status = incoming.Status
	}
}

// statusWins decides whether an incoming status supersedes the existing one:
// sent beats everything, an incoming pending supersedes a failed entry (a
// retry), and otherwise the existing status stands.
func statusWins(incoming, existing MessageStatus) bool {
	switch {
	case incoming == "":
		return false
	case existing == "":
		return true
	case incoming == StatusSent:
		return true
	case incoming == StatusPending && existing == StatusFailed:
		return true
	default:
		return false
	}
}
