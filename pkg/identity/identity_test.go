package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"u1", "u1"},
		{"  U1  ", "u1"},
		{"capsule:U1", "u1"},
		{"Client:abc", "abc"},
		{"user:ABC-123", "abc-123"},
		{"capsule:", "capsule:"}, // bare prefix is left alone
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalKey(tt.in), "CanonicalKey(%q)", tt.in)
	}
}

func TestLooksLikeRawID(t *testing.T) {
	assert.True(t, LooksLikeRawID("ab34ef1290cd5678"))
	assert.True(t, LooksLikeRawID("d9428888-122b-11e1-b85c-61cd3cbb3210"))
	assert.True(t, LooksLikeRawID("capsule:whatever"))
	assert.False(t, LooksLikeRawID("Ada Lovelace"))
	assert.False(t, LooksLikeRawID("ada"))
	assert.False(t, LooksLikeRawID(""))
}

func TestRegistrySetCurrentUserID(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.SetCurrentUserID("u1"))
	assert.False(t, r.SetCurrentUserID("u1"), "same id is a no-op")
	assert.False(t, r.SetCurrentUserID("   "), "empty after trim is a no-op")
	assert.Equal(t, "u1", r.CurrentUserID())

	// Changing the id keeps the old one as an alias.
	assert.True(t, r.SetCurrentUserID("u2"))
	assert.True(t, r.IsSelf("u1"))
	assert.True(t, r.IsSelf("u2"))
}

func TestRegistryIsSelf(t *testing.T) {
	r := NewRegistry()
	r.SetCurrentUserID("User-42")
	r.SetSelfClientID("client-abc")
	r.RegisterAliases("capsule:User-42")

	assert.True(t, r.IsSelf("User-42"))
	assert.True(t, r.IsSelf("client-abc"))
	assert.True(t, r.IsSelf("user-42"), "canonical form matches")
	assert.True(t, r.IsSelf("capsule:user-42"))
	assert.False(t, r.IsSelf("someone-else"))
	assert.False(t, r.IsSelf(""))
}

func TestRegistryAliasSet(t *testing.T) {
	r := NewRegistry()
	r.SetCurrentUserID("u1")

	set := r.AliasSet("Capsule:U9", "")
	_, hasRaw := set["Capsule:U9"]
	_, hasCanon := set["u9"]
	_, hasSelf := set["u1"]
	assert.True(t, hasRaw)
	assert.True(t, hasCanon)
	assert.True(t, hasSelf)
}
