package friends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryLookup(t *testing.T) {
	d := NewDirectory()
	d.Replace([]Friend{
		{UserID: "U1", Key: "ada", Name: "Ada", Avatar: "a.png"},
		{UserID: "u2", Name: "Grace"},
		{UserID: "   ", Name: "ignored"},
	})

	require.Equal(t, 2, d.Len())

	f, ok := d.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "Ada", f.Name)

	f, ok = d.Lookup("ADA")
	require.True(t, ok, "alternate key, case-insensitive")
	assert.Equal(t, "U1", f.UserID)

	f, ok = d.Lookup("capsule:u2")
	require.True(t, ok, "prefixed form canonicalizes to user id")
	assert.Equal(t, "Grace", f.Name)

	_, ok = d.Lookup("nobody")
	assert.False(t, ok)
	_, ok = d.Lookup("")
	assert.False(t, ok)
}

func TestDirectoryReplaceDropsStale(t *testing.T) {
	d := NewDirectory()
	d.Replace([]Friend{{UserID: "u1", Name: "Ada"}})
	d.Replace([]Friend{{UserID: "u2", Name: "Grace"}})

	_, ok := d.Lookup("u1")
	assert.False(t, ok, "replace is wholesale")
	_, ok = d.Lookup("u2")
	assert.True(t, ok)
}
