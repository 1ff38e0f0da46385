package chat

import (
	"time"

	"github.com/tinyland-inc/partyline/pkg/friends"
)

// newTestStore returns a store with a resolved self identity and a frozen,
// steerable clock.
func newTestStore() (*Store, *time.Time) {
	st := NewStore(Options{})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	st.SetCurrentUserID("u1")
	return st, &now
}

func withFriends(st *Store, list ...friends.Friend) {
	st.UpdateFromFriends(list)
}

func iso(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
