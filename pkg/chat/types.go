// Package chat implements the locally-authoritative chat state machine: a
// store of direct and group sessions, their participants, messages,
// reactions, typing indicators and unread counts, reconciled against
// out-of-order real-time events, optimistic local sends and server acks.
//
// All mutation entry points apply synchronously and atomically under the
// store lock; there is no partial-apply state visible between transitions.
// Network delivery, persistence and timers belong to the caller.
package chat

// SessionType distinguishes one-to-one conversations from group chats.
type SessionType string

const (
	SessionDirect SessionType = "direct"
	SessionGroup  SessionType = "group"
)

// MessageStatus tracks a message through the optimistic-send lifecycle.
type MessageStatus string

const (
	// StatusPending marks an optimistic local message awaiting the server ack.
	StatusPending MessageStatus = "pending"
	// StatusSent marks a server-confirmed or remotely received message.
	StatusSent MessageStatus = "sent"
	// StatusFailed marks a local message whose send errored. A retry
	// re-enters pending.
	StatusFailed MessageStatus = "failed"
)

// Participant identifies one member of a session. Identity equality is by ID;
// the id may be a raw user id, an ephemeral client id, or a synthetic
// identifier and is treated as opaque except for canonicalization.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Reaction is one emoji with the participants who applied it. The list on a
// message is deduplicated by emoji; user lists are deduplicated by id.
type Reaction struct {
	Emoji string        `json:"emoji"`
	Users []Participant `json:"users"`
}

// Attachment is a sanitized attachment descriptor. Raw payload entries are
// never trusted; malformed ones are dropped individually.
type Attachment struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Mime      string `json:"mime,omitempty"`
	Name      string `json:"name,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Message is one entry in a session's ledger. ID is unique within the
// session; the ledger keeps an id-to-position index in sync with the backing
// slice on every structural mutation.
type Message struct {
	ID          string        `json:"id"`
	AuthorID    string        `json:"author_id"`
	Body        string        `json:"body"`
	SentAt      string        `json:"sent_at"` // ISO-8601
	Status      MessageStatus `json:"status"`
	Reactions   []Reaction    `json:"reactions,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	TaskID      string        `json:"task_id,omitempty"`
	TaskTitle   string        `json:"task_title,omitempty"`
}

// typingEntry is one live typing indicator, keyed in the session's typing map
// by the sender's canonical key.
type typingEntry struct {
	Participant Participant
	ExpiresAt   int64 // epoch ms
}

// Session is one conversation and all its local state.
type Session struct {
	ID                   string
	Type                 SessionType
	Title                string
	Avatar               string
	CreatedBy            string
	Participants         []Participant
	Messages             []Message
	LastMessageTimestamp int64 // epoch ms, non-decreasing except on remap merge
	UnreadCount          int

	messageIndex map[string]int
	typing       map[string]typingEntry
}

func newSession(id string) *Session {
	return &Session{
		ID:           id,
		messageIndex: make(map[string]int),
		typing:       make(map[string]typingEntry),
	}
}

// rebuildIndex recomputes the id-to-position index from the backing slice.
func (s *Session) rebuildIndex() {
	s.messageIndex = make(map[string]int, len(s.Messages))
	for i := range s.Messages {
		s.messageIndex[s.Messages[i].ID] = i
	}
}
