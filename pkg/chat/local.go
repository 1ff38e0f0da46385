package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrIdentityNotReady is returned by PrepareLocalMessage when no self
// identity is resolvable yet. Sending before identity is ready is a caller
// contract violation, not a recoverable runtime condition.
var ErrIdentityNotReady = errors.New("chat: local send before identity is ready")

// LocalMessageOptions carries the optional parts of a local send.
type LocalMessageOptions struct {
	Attachments []RawAttachment
	TaskID      string
	TaskTitle   string
}

// SessionIdentity is the snapshot of session fields returned alongside an
// optimistic message, for rendering before network confirmation.
type SessionIdentity struct {
	SessionID    string
	Type         SessionType
	Title        string
	Participants []Participant
}

// PrepareLocalMessage builds a pending message with a fresh client id,
// inserts it optimistically, and returns it together with the session
// identity snapshot. The target session is created on first reference.
func (st *Store) PrepareLocalMessage(sessionID, body string, opts LocalMessageOptions) (Message, SessionIdentity, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	self, ok := st.selfParticipant()
	if !ok {
		return Message{}, SessionIdentity{}, ErrIdentityNotReady
	}

	s, _ := st.ensureSessionLocked(SessionDescriptor{ID: sessionID})
	if s == nil {
		return Message{}, SessionIdentity{}, errors.New("chat: empty session id")
	}

	// Make sure the sender shows up in the participant list.
	if !containsParticipant(s.Participants, self.ID) {
		s.Participants = MergeParticipants(s.Participants, []Participant{self})
	}

	msg := Message{
		ID:          uuid.New().String(),
		AuthorID:    self.ID,
		Body:        strings.TrimSpace(body),
		SentAt:      st.now().UTC().Format(time.RFC3339Nano),
		Status:      StatusPending,
		Attachments: NormalizeAttachments(opts.Attachments),
		TaskID:      opts.TaskID,
		TaskTitle:   opts.TaskTitle,
	}
	st.addMessageLocked(s, msg, true)

	ident := SessionIdentity{
		SessionID:    s.ID,
		Type:         s.Type,
		Title:        s.Title,
		Participants: append([]Participant(nil), s.Participants...),
	}
	return copyMessage(msg), ident, nil
}

func containsParticipant(list []Participant, id string) bool {
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}
