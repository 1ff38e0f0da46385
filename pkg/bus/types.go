package bus

import "github.com/tinyland-inc/partyline/pkg/chat"

// SendRequest is an optimistic local send awaiting transport delivery. The
// ClientMessageID is the id the store assigned to the pending message; the
// server echoes it back so the ack can re-key the entry.
type SendRequest struct {
	SessionID       string               `json:"session_id"`
	ClientMessageID string               `json:"client_message_id"`
	Body            string               `json:"body"`
	Attachments     []chat.RawAttachment `json:"attachments,omitempty"`
	TaskID          string               `json:"task_id,omitempty"`
	TaskTitle       string               `json:"task_title,omitempty"`
}
