package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinyland-inc/partyline/pkg/chat"
)

// TestStateRoundtrip verifies that persist -> reload produces an
// observationally equivalent store: same sessions, same ordering, same
// messages, with statuses normalized to sent.
func TestStateRoundtrip(t *testing.T) {
	store := chat.NewStore(chat.Options{})
	store.SetCurrentUserID("u1")

	now := time.Now().UTC()
	store.ApplyMessageEvent(chat.MessageEventPayload{
		ConversationID: "d1",
		SenderID:       "u2",
		ID:             "m1",
		Body:           "first",
		SentAt:         now.Format(time.RFC3339Nano),
		Participants: []chat.RawParticipant{
			{ID: "u1", Name: "Me"},
			{ID: "u2", Name: "Ada"},
		},
	})
	store.ApplyMessageEvent(chat.MessageEventPayload{
		ConversationID:   "group:g1",
		ConversationType: "group",
		Title:            "Lunch crew",
		SenderID:         "u3",
		ID:               "m2",
		Body:             "second",
		SentAt:           now.Add(time.Minute).Format(time.RFC3339Nano),
		Participants: []chat.RawParticipant{
			{ID: "u1"}, {ID: "u3", Name: "Bo"},
		},
	})
	store.SetActiveSession("d1")
	if _, _, err := store.PrepareLocalMessage("d1", "pending on exit", chat.LocalMessageOptions{}); err != nil {
		t.Fatalf("preparing local message: %v", err)
	}

	// persist the way the sweeper and the run command do
	statePath := filepath.Join(t.TempDir(), "state.json")
	data, err := json.MarshalIndent(store.ToStoredState(), "", "  ")
	if err != nil {
		t.Fatalf("marshaling state: %v", err)
	}
	if err := os.WriteFile(statePath, data, 0o600); err != nil {
		t.Fatalf("writing state: %v", err)
	}

	// reload in a fresh process lifetime
	raw, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("reading state: %v", err)
	}
	var state chat.StoredState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("parsing state: %v", err)
	}

	reloaded := chat.NewStore(chat.Options{})
	reloaded.SetCurrentUserID("u1")
	reloaded.Hydrate(state)

	if got := reloaded.ActiveSessionID(); got != "d1" {
		t.Errorf("active session lost: got %q", got)
	}

	before := store.RenderSnapshot()
	after := reloaded.RenderSnapshot()
	if len(after) != len(before) {
		t.Fatalf("session count mismatch: %d vs %d", len(after), len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Errorf("session order changed at %d: %s vs %s", i, after[i].ID, before[i].ID)
		}
		if after[i].Title != before[i].Title || after[i].Type != before[i].Type {
			t.Errorf("session %s metadata changed", before[i].ID)
		}
		if len(after[i].Messages) != len(before[i].Messages) {
			t.Fatalf("session %s message count mismatch", before[i].ID)
		}
		for j, m := range after[i].Messages {
			if m.ID != before[i].Messages[j].ID || m.Body != before[i].Messages[j].Body {
				t.Errorf("session %s message %d changed", before[i].ID, j)
			}
			if m.Status != chat.StatusSent {
				t.Errorf("rehydrated message %s should be sent, got %s", m.ID, m.Status)
			}
		}
	}
}
