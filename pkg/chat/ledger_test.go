package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessageIdempotent(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	msg := Message{ID: "m1", AuthorID: "u2", Body: "hi", SentAt: iso(*now), Status: StatusSent}
	require.True(t, st.AddMessage("s1", msg, false))
	require.True(t, st.AddMessage("s1", msg, false))

	msgs := st.Messages("s1")
	require.Len(t, msgs, 1, "repeated delivery merges, never duplicates")

	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, 1, view.UnreadCount, "no double unread increment")
}

func TestAddMessageUnknownSession(t *testing.T) {
	st, _ := newTestStore()
	assert.False(t, st.AddMessage("nope", Message{ID: "m1"}, false))
}

func TestAddMessageUnreadAccounting(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	for i := 0; i < 3; i++ {
		st.AddMessage("s1", Message{
			ID: fmt.Sprintf("m%d", i), AuthorID: "u2", Body: "x", SentAt: iso(*now), Status: StatusSent,
		}, false)
	}
	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, 3, view.UnreadCount)

	require.True(t, st.SetActiveSession("s1"))
	view, _ = st.SessionSnapshot("s1")
	assert.Equal(t, 0, view.UnreadCount, "activation resets unread")

	// Inbound while active does not count as unread.
	st.AddMessage("s1", Message{ID: "m9", AuthorID: "u2", Body: "x", SentAt: iso(*now), Status: StatusSent}, false)
	view, _ = st.SessionSnapshot("s1")
	assert.Equal(t, 0, view.UnreadCount)
}

func TestAddMessageRetentionTrim(t *testing.T) {
	st, now := newTestStore()
	st.opts.RetentionLimit = 5
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	for i := 0; i < 8; i++ {
		st.AddMessage("s1", Message{
			ID:       fmt.Sprintf("m%d", i),
			AuthorID: "u2",
			Body:     "x",
			SentAt:   iso(now.Add(time.Duration(i) * time.Second)),
			Status:   StatusSent,
		}, false)
	}

	msgs := st.Messages("s1")
	require.Len(t, msgs, 5)
	assert.Equal(t, "m3", msgs[0].ID, "oldest excess dropped")

	_, ok := st.Message("s1", "m0")
	assert.False(t, ok, "trimmed ids no longer resolve")
	got, ok := st.Message("s1", "m7")
	require.True(t, ok, "index rebuilt after trim")
	assert.Equal(t, "m7", got.ID)
}

func TestAddMessageMergePrecedence(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	st.AddMessage("s1", Message{ID: "m1", AuthorID: "u1", Body: "hi", SentAt: iso(*now), Status: StatusPending}, true)
	st.AddMessage("s1", Message{ID: "m1", AuthorID: "u1", Body: "hi", SentAt: iso(*now), Status: StatusSent}, false)

	got, ok := st.Message("s1", "m1")
	require.True(t, ok)
	assert.Equal(t, StatusSent, got.Status, "sent wins over pending")

	// A later pending delivery never demotes a sent message.
	st.AddMessage("s1", Message{ID: "m1", Status: StatusPending}, true)
	got, _ = st.Message("s1", "m1")
	assert.Equal(t, StatusSent, got.Status)
}

func TestMergeRetainsReactionsAndAttachments(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	st.AddMessage("s1", Message{
		ID: "m1", AuthorID: "u2", Body: "pic", SentAt: iso(*now), Status: StatusSent,
		Reactions:   []Reaction{{Emoji: "👍", Users: []Participant{{ID: "u1", Name: "u1"}}}},
		Attachments: []Attachment{{ID: "a1", URL: "https://x/a1"}},
	}, false)

	// Merge with nil reactions and empty attachments keeps both.
	st.AddMessage("s1", Message{ID: "m1", Body: "pic (edited)", Status: StatusSent}, false)
	got, _ := st.Message("s1", "m1")
	assert.Equal(t, "pic (edited)", got.Body)
	require.Len(t, got.Reactions, 1)
	require.Len(t, got.Attachments, 1)

	// A real (non-nil) reaction array replaces wholesale, even when empty.
	st.AddMessage("s1", Message{ID: "m1", Reactions: []Reaction{}}, false)
	got, _ = st.Message("s1", "m1")
	assert.Empty(t, got.Reactions)
}

func TestAcknowledgeMessageRekeys(t *testing.T) {
	st, now := newTestStore()

	local, _, err := st.PrepareLocalMessage("s1", "hi", LocalMessageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, local.Status)

	ok := st.AcknowledgeMessage("s1", local.ID, Message{
		ID: "m-server", AuthorID: "u1", Body: "hi", SentAt: iso(*now),
	})
	require.True(t, ok)

	msgs := st.Messages("s1")
	require.Len(t, msgs, 1, "exactly one message after ack")
	assert.Equal(t, "m-server", msgs[0].ID)
	assert.Equal(t, StatusSent, msgs[0].Status)
	assert.Equal(t, "hi", msgs[0].Body)

	_, found := st.Message("s1", local.ID)
	assert.False(t, found, "client id no longer resolves")
	_, found = st.Message("s1", "m-server")
	assert.True(t, found)
}

func TestAcknowledgeMessageDuplicateServerCopy(t *testing.T) {
	st, now := newTestStore()

	local, _, err := st.PrepareLocalMessage("s1", "hi", LocalMessageOptions{})
	require.NoError(t, err)

	// The server copy arrives as a plain message event before the ack.
	st.AddMessage("s1", Message{ID: "m-server", AuthorID: "u1", Body: "hi", SentAt: iso(*now), Status: StatusSent}, false)
	require.Len(t, st.Messages("s1"), 2)

	require.True(t, st.AcknowledgeMessage("s1", local.ID, Message{ID: "m-server", AuthorID: "u1", Body: "hi"}))
	msgs := st.Messages("s1")
	require.Len(t, msgs, 1, "pending entry folded into the server copy")
	assert.Equal(t, "m-server", msgs[0].ID)
	assert.Equal(t, StatusSent, msgs[0].Status)
}

func TestAcknowledgeMessageUnknownClientID(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	// No pending entry: the ack is treated as a brand-new inbound message.
	require.True(t, st.AcknowledgeMessage("s1", "never-seen", Message{
		ID: "m2", AuthorID: "u9", Body: "yo", SentAt: iso(*now),
	}))
	got, ok := st.Message("s1", "m2")
	require.True(t, ok)
	assert.Equal(t, StatusSent, got.Status)
	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, 1, view.UnreadCount, "non-self author counts as inbound")
}

func TestMarkMessageStatus(t *testing.T) {
	st, _ := newTestStore()
	local, _, err := st.PrepareLocalMessage("s1", "hi", LocalMessageOptions{})
	require.NoError(t, err)

	assert.True(t, st.MarkMessageStatus("s1", local.ID, StatusFailed))
	assert.False(t, st.MarkMessageStatus("s1", local.ID, StatusFailed), "unchanged status is a no-op")
	assert.False(t, st.MarkMessageStatus("s1", "missing", StatusFailed))
	assert.False(t, st.MarkMessageStatus("nope", local.ID, StatusFailed))

	got, _ := st.Message("s1", local.ID)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestUpdateMessageIdenticalPatchNoOp(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	atts := []Attachment{{ID: "a1", URL: "https://x/a", Mime: "image/png"}}
	st.AddMessage("s1", Message{
		ID: "m1", AuthorID: "u2", Body: "hi", SentAt: iso(*now),
		Status: StatusSent, Attachments: atts,
	}, false)

	body := "hi"
	assert.False(t, st.UpdateMessage("s1", "m1", MessagePatch{Body: &body, Attachments: atts}),
		"re-delivered identical edit is a no-op")

	edited := "hi!"
	assert.True(t, st.UpdateMessage("s1", "m1", MessagePatch{Body: &edited}))
	assert.True(t, st.UpdateMessage("s1", "m1", MessagePatch{
		Attachments: []Attachment{{ID: "a2", URL: "https://x/b"}},
	}))
}

func TestDeleteMessage(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	st.AddMessage("s1", Message{ID: "m1", AuthorID: "u2", Body: "a", SentAt: iso(*now), Status: StatusSent}, false)
	st.AddMessage("s1", Message{ID: "m2", AuthorID: "u2", Body: "b", SentAt: iso(*now), Status: StatusSent}, false)

	require.True(t, st.DeleteMessage("s1", "m1"))
	assert.False(t, st.DeleteMessage("s1", "m1"), "already gone")

	got, ok := st.Message("s1", "m2")
	require.True(t, ok, "index intact after removal")
	assert.Equal(t, "b", got.Body)
}

func TestPrepareLocalMessageRequiresIdentity(t *testing.T) {
	st := NewStore(Options{})
	_, _, err := st.PrepareLocalMessage("s1", "hi", LocalMessageOptions{})
	require.ErrorIs(t, err, ErrIdentityNotReady)
}

func TestPrepareLocalMessage(t *testing.T) {
	st, _ := newTestStore()
	st.SetActiveSession("s1")

	msg, ident, err := st.PrepareLocalMessage("s1", "  hello  ", LocalMessageOptions{
		Attachments: []RawAttachment{{URL: "https://x/a"}, {Name: "no-url"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "u1", msg.AuthorID)
	assert.Equal(t, "hello", msg.Body, "body trimmed")
	assert.Equal(t, StatusPending, msg.Status)
	require.Len(t, msg.Attachments, 1, "malformed attachment dropped individually")

	assert.Equal(t, "s1", ident.SessionID)
	require.Len(t, ident.Participants, 1, "sender inserted as fallback participant")
	assert.Equal(t, "u1", ident.Participants[0].ID)

	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, 0, view.UnreadCount, "own sends never count as unread")
}
