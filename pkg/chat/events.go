package chat

import (
	"encoding/json"
	"strings"

	"github.com/tinyland-inc/partyline/pkg/logger"
)

// Event type tags on the real-time channel.
const (
	EventSession       = "chat.session"
	EventMessage       = "chat.message"
	EventReaction      = "chat.reaction"
	EventMessageUpdate = "chat.message_update"
	EventMessageDelete = "chat.message_delete"
	EventTyping        = "chat.typing"
)

// Envelope is the raw frame from the real-time transport: a type tag and an
// opaque payload, decoded per event kind at this boundary.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SessionEventPayload describes a session created or updated server-side.
type SessionEventPayload struct {
	ConversationID string           `json:"conversation_id"`
	Type           string           `json:"type,omitempty"`
	Title          string           `json:"title,omitempty"`
	Avatar         string           `json:"avatar,omitempty"`
	CreatedBy      string           `json:"created_by,omitempty"`
	Participants   []RawParticipant `json:"participants,omitempty"`
}

// MessageEventPayload carries a new message plus its session context.
type MessageEventPayload struct {
	ConversationID   string           `json:"conversation_id"`
	ConversationType string           `json:"conversation_type,omitempty"`
	Title            string           `json:"title,omitempty"`
	SenderID         string           `json:"sender_id"`
	ID               string           `json:"id"`
	ClientMessageID  string           `json:"client_message_id,omitempty"`
	Body             string           `json:"body"`
	SentAt           string           `json:"sent_at,omitempty"`
	Participants     []RawParticipant `json:"participants,omitempty"`
	Reactions        []RawReaction    `json:"reactions,omitempty"`
	Attachments      []RawAttachment  `json:"attachments,omitempty"`
	TaskID           string           `json:"task_id,omitempty"`
	TaskTitle        string           `json:"task_title,omitempty"`
}

// ReactionEventPayload is a wholesale reaction replacement for one message.
type ReactionEventPayload struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	SenderID       string           `json:"sender_id,omitempty"`
	Reactions      []RawReaction    `json:"reactions"`
	Participants   []RawParticipant `json:"participants,omitempty"`
}

// MessageUpdateEventPayload is an edit patch for one message.
type MessageUpdateEventPayload struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	SenderID       string           `json:"sender_id,omitempty"`
	Body           *string          `json:"body,omitempty"`
	Attachments    []RawAttachment  `json:"attachments,omitempty"`
	Participants   []RawParticipant `json:"participants,omitempty"`
}

// MessageDeleteEventPayload removes one message.
type MessageDeleteEventPayload struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	SenderID       string           `json:"sender_id,omitempty"`
	Participants   []RawParticipant `json:"participants,omitempty"`
}

// TypingEventPayload is the typing sub-protocol frame.
type TypingEventPayload struct {
	ConversationID string           `json:"conversation_id"`
	SenderID       string           `json:"sender_id"`
	SenderName     string           `json:"sender_name,omitempty"`
	SenderAvatar   string           `json:"sender_avatar,omitempty"`
	Typing         bool             `json:"typing"`
	ExpiresAt      int64            `json:"expires_at,omitempty"` // epoch ms
	Participants   []RawParticipant `json:"participants,omitempty"`
}

// SessionID extracts the conversation id from the payload without a full
// decode, for routing and metrics attribution.
func (e Envelope) SessionID() string {
	var probe struct {
		ConversationID string `json:"conversation_id"`
	}
	if json.Unmarshal(e.Payload, &probe) != nil {
		return ""
	}
	return probe.ConversationID
}

// ApplyEnvelope decodes and applies one inbound frame. Malformed or foreign
// envelopes report false and leave the store untouched; events on a shared
// channel routinely reference other users' data and must never crash the
// store.
func (st *Store) ApplyEnvelope(env Envelope) bool {
	switch env.Type {
	case EventSession:
		var p SessionEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplySessionEvent(p)
	case EventMessage:
		var p MessageEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplyMessageEvent(p)
	case EventReaction:
		var p ReactionEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplyReactionEvent(p)
	case EventMessageUpdate:
		var p MessageUpdateEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplyMessageUpdateEvent(p)
	case EventMessageDelete:
		var p MessageDeleteEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplyMessageDeleteEvent(p)
	case EventTyping:
		var p TypingEventPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return st.dropEvent(env.Type, "malformed payload")
		}
		return st.ApplyTypingEvent(p)
	default:
		return st.dropEvent(env.Type, "unknown event type")
	}
}

func (st *Store) dropEvent(eventType, reason string) bool {
	logger.DebugCF("events", "Event dropped", map[string]any{
		"type":   eventType,
		"reason": reason,
	})
	return false
}

// admitLocked is the self-admission filter: an event is admitted only when
// its participants, its sender, or the existing session already resolve to
// the local user. Everything else is cross-tenant noise on the shared
// channel.
func (st *Store) admitLocked(sessionID, senderID string, participants []Participant) bool {
	if st.identity.IsSelf(senderID) {
		return true
	}
	for _, p := range participants {
		if st.identity.IsSelf(p.ID) {
			return true
		}
	}
	return st.hasSelfParticipantLocked(sessionID)
}

// ApplySessionEvent creates or merges a session from a descriptor event.
func (st *Store) ApplySessionEvent(p SessionEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" {
		return st.dropEvent(EventSession, "missing conversation_id")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.admitLocked(id, p.CreatedBy, parts) {
		return st.dropEvent(EventSession, "no self participant")
	}
	_, res := st.ensureSessionLocked(SessionDescriptor{
		ID:           id,
		Type:         SessionType(p.Type),
		Title:        p.Title,
		Avatar:       p.Avatar,
		CreatedBy:    p.CreatedBy,
		Participants: parts,
	})
	return res.Changed
}

// ApplyMessageEvent ingests a new (or re-delivered) message. Application is
// idempotent: the same event twice yields the same final state, with no
// duplicate entry and no double unread increment.
func (st *Store) ApplyMessageEvent(p MessageEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" || p.ID == "" {
		return st.dropEvent(EventMessage, "missing conversation_id or id")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.admitLocked(id, p.SenderID, parts) {
		return st.dropEvent(EventMessage, "no self participant")
	}

	s, _ := st.ensureSessionLocked(SessionDescriptor{
		ID:           id,
		Type:         SessionType(p.ConversationType),
		Title:        p.Title,
		Participants: parts,
	})

	msg := Message{
		ID:          p.ID,
		AuthorID:    p.SenderID,
		Body:        p.Body,
		SentAt:      p.SentAt,
		Status:      StatusSent,
		Attachments: NormalizeAttachments(p.Attachments),
		TaskID:      p.TaskID,
		TaskTitle:   p.TaskTitle,
	}
	if p.Reactions != nil {
		msg.Reactions = NormalizeReactions(p.Reactions)
	}

	isLocal := st.identity.IsSelf(p.SenderID)
	if p.ClientMessageID != "" {
		if _, pending := s.messageIndex[p.ClientMessageID]; pending {
			// The remote copy of our own optimistic send: reconcile instead
			// of inserting a second entry.
			return st.acknowledgeLocked(s, p.ClientMessageID, msg)
		}
	}
	st.addMessageLocked(s, msg, isLocal)

	// A sender we have not seen yet still belongs in the participant list.
	if p.SenderID != "" && !containsParticipant(s.Participants, p.SenderID) && !isLocal {
		sender := st.enrichParticipant(Participant{ID: p.SenderID, Name: p.SenderID})
		s.Participants = MergeParticipants(s.Participants, []Participant{sender})
	}
	return true
}

// ApplyReactionEvent replaces a message's reactions. Stale references no-op.
func (st *Store) ApplyReactionEvent(p ReactionEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" || p.MessageID == "" {
		return st.dropEvent(EventReaction, "missing conversation_id or message_id")
	}
	if p.Reactions == nil {
		return st.dropEvent(EventReaction, "reactions not an array")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	admitted := st.admitLocked(id, p.SenderID, parts)
	st.mu.Unlock()
	if !admitted {
		return st.dropEvent(EventReaction, "no self participant")
	}
	return st.SetReactions(id, p.MessageID, NormalizeReactions(p.Reactions))
}

// ApplyMessageUpdateEvent applies an edit patch. Stale references no-op.
func (st *Store) ApplyMessageUpdateEvent(p MessageUpdateEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" || p.MessageID == "" {
		return st.dropEvent(EventMessageUpdate, "missing conversation_id or message_id")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	admitted := st.admitLocked(id, p.SenderID, parts)
	st.mu.Unlock()
	if !admitted {
		return st.dropEvent(EventMessageUpdate, "no self participant")
	}
	return st.UpdateMessage(id, p.MessageID, MessagePatch{
		Body:        p.Body,
		Attachments: NormalizeAttachments(p.Attachments),
	})
}

// ApplyMessageDeleteEvent removes a message. A delete arriving before its
// target's creation is absorbed as a no-op.
func (st *Store) ApplyMessageDeleteEvent(p MessageDeleteEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" || p.MessageID == "" {
		return st.dropEvent(EventMessageDelete, "missing conversation_id or message_id")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	admitted := st.admitLocked(id, p.SenderID, parts)
	st.mu.Unlock()
	if !admitted {
		return st.dropEvent(EventMessageDelete, "no self participant")
	}
	return st.DeleteMessage(id, p.MessageID)
}

// ApplyTypingEvent upserts or clears a typing indicator, constructing the
// session if unseen. Self-typing is never stored.
func (st *Store) ApplyTypingEvent(p TypingEventPayload) bool {
	id := strings.TrimSpace(p.ConversationID)
	if id == "" || strings.TrimSpace(p.SenderID) == "" {
		return st.dropEvent(EventTyping, "missing conversation_id or sender_id")
	}
	parts := NormalizeParticipants(p.Participants)

	st.mu.Lock()
	if !st.admitLocked(id, p.SenderID, parts) {
		st.mu.Unlock()
		return st.dropEvent(EventTyping, "no self participant")
	}
	st.ensureSessionLocked(SessionDescriptor{ID: id, Participants: parts})
	st.mu.Unlock()

	sender, _ := NormalizeParticipant(RawParticipant{
		ID:     p.SenderID,
		Name:   p.SenderName,
		Avatar: p.SenderAvatar,
	})
	return st.SetTyping(id, sender, p.Typing, p.ExpiresAt)
}
