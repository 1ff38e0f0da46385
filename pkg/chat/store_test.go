package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySelfParticipantRewrites(t *testing.T) {
	st, _ := newTestStore()
	st.SetSelfClientID("client-xyz")

	// State arrived before the canonical identity was known: the client id
	// shows up as participant, author and creator.
	st.EnsureSession(SessionDescriptor{
		ID:        "s1",
		CreatedBy: "client-xyz",
		Participants: []Participant{
			{ID: "client-xyz", Name: "client-xyz"},
			{ID: "u2", Name: "Ada"},
		},
	})
	st.AddMessage("s1", Message{ID: "m1", AuthorID: "client-xyz", Body: "hi", Status: StatusSent}, true)

	self := Participant{ID: "u1", Name: "Me", Avatar: "me.png"}
	require.True(t, st.ApplySelfParticipant(self, []string{"client-xyz"}))

	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, "u1", view.CreatedBy)
	require.Len(t, view.Participants, 2)
	assert.Equal(t, self, view.Participants[0])
	got, _ := st.Message("s1", "m1")
	assert.Equal(t, "u1", got.AuthorID)

	assert.False(t, st.ApplySelfParticipant(self, []string{"client-xyz"}), "idempotent")
}

func TestApplySelfParticipantMergesDuplicates(t *testing.T) {
	st, _ := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	// Both the raw id and a prefixed alias appear as distinct participants.
	st.UpsertParticipants("s1", []Participant{{ID: "capsule:u1", Name: "capsule:u1"}})
	require.Len(t, st.Participants("s1"), 2)

	st.ApplySelfParticipant(Participant{ID: "u1", Name: "Me"}, nil)
	parts := st.Participants("s1")
	require.Len(t, parts, 1, "aliased duplicates collapse into one self entry")
	assert.Equal(t, "Me", parts[0].Name)
}

func TestSetCurrentUserIDRetroactiveRewrite(t *testing.T) {
	st, _ := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}, {ID: "u2", Name: "Ada"}}})
	st.AddMessage("s1", Message{ID: "m1", AuthorID: "u1", Body: "hi", Status: StatusSent}, true)

	require.True(t, st.SetCurrentUserID("u1-canonical"))

	got, _ := st.Message("s1", "m1")
	assert.Equal(t, "u1-canonical", got.AuthorID, "old alias rewritten to new canonical id")
	assert.False(t, st.SetCurrentUserID("u1-canonical"), "unchanged id is a no-op")
}

func TestSetActiveSession(t *testing.T) {
	st, _ := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	require.True(t, st.SetActiveSession("s1"))
	assert.False(t, st.SetActiveSession("s1"), "same id is a no-op")
	assert.Equal(t, "s1", st.ActiveSessionID())
}

func TestDeleteSession(t *testing.T) {
	st, _ := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	st.SetActiveSession("s1")

	require.True(t, st.DeleteSession("s1"))
	assert.Empty(t, st.ActiveSessionID(), "deleting the active session clears the pointer")
	assert.False(t, st.DeleteSession("s1"))
}

func TestUpsertParticipantsNoOpOnIdenticalMerge(t *testing.T) {
	st, _ := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	require.True(t, st.UpsertParticipants("s1", []Participant{{ID: "u2", Name: "Ada"}}))
	assert.False(t, st.UpsertParticipants("s1", []Participant{{ID: "u2", Name: "Ada"}}))
	assert.False(t, st.UpsertParticipants("missing", []Participant{{ID: "u2", Name: "Ada"}}))
}

func TestRenderSnapshotOrderAndIsolation(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	st.EnsureSession(SessionDescriptor{ID: "s2", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	st.AddMessage("s1", Message{ID: "m1", AuthorID: "u2", Body: "old", SentAt: iso(*now), Status: StatusSent}, false)
	st.AddMessage("s2", Message{ID: "m2", AuthorID: "u2", Body: "new", SentAt: iso(now.Add(time.Minute)), Status: StatusSent}, false)

	views := st.RenderSnapshot()
	require.Len(t, views, 2)
	assert.Equal(t, "s2", views[0].ID, "most recent activity first")
	assert.Equal(t, "new", views[0].LastMessagePreview)

	// Mutating the returned view must not leak into the store.
	views[0].Messages[0].Body = "tampered"
	views[0].Participants[0].Name = "tampered"
	got, _ := st.Message("s2", "m2")
	assert.Equal(t, "new", got.Body)
	assert.Equal(t, "u1", st.Participants("s2")[0].Name)
}

func TestLastMessagePreviewAttachmentFallback(t *testing.T) {
	st, now := newTestStore()
	st.EnsureSession(SessionDescriptor{ID: "s1", Participants: []Participant{{ID: "u1", Name: "u1"}}})

	st.AddMessage("s1", Message{
		ID: "m1", AuthorID: "u2", SentAt: iso(*now), Status: StatusSent,
		Attachments: []Attachment{{ID: "a", URL: "https://x/a"}},
	}, false)
	view, _ := st.SessionSnapshot("s1")
	assert.Equal(t, "Attachment", view.LastMessagePreview)

	st.AddMessage("s1", Message{
		ID: "m2", AuthorID: "u2", SentAt: iso(now.Add(time.Minute)), Status: StatusSent,
		Attachments: []Attachment{{ID: "a", URL: "https://x/a"}, {ID: "b", URL: "https://x/b"}},
	}, false)
	view, _ = st.SessionSnapshot("s1")
	assert.Equal(t, "Attachments (2)", view.LastMessagePreview)
}

func TestEnsureSessionReportsSanitizedID(t *testing.T) {
	st, _ := newTestStore()

	res := st.EnsureSession(SessionDescriptor{ID: "  s1  ", Participants: []Participant{{ID: "u1", Name: "u1"}}})
	assert.Equal(t, "s1", res.SessionID, "id comes back trimmed")
	assert.True(t, res.Created)

	res = st.EnsureSession(SessionDescriptor{ID: "s1"})
	assert.Equal(t, "s1", res.SessionID)
	assert.False(t, res.Created)
	assert.False(t, res.Changed)

	res = st.EnsureSession(SessionDescriptor{ID: "   "})
	assert.Empty(t, res.SessionID)
	assert.False(t, res.Created)
}
