package platform

import (
	"testing"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	r := NewRegistry()

	p, err := r.Lookup(Twitter)
	require.NoError(t, err)
	max, ok := p.Limit()
	assert.True(t, ok)
	assert.Equal(t, 280, max)
	assert.True(t, p.SupportsAuthorization())

	_, err = r.Lookup("myspace")
	assert.ErrorIs(t, err, apperrors.ErrPlatformNotFound)
}

func TestLimits(t *testing.T) {
	want := map[string]int{
		Twitter:   280,
		LinkedIn:  3000,
		Instagram: 2200,
		Facebook:  63206,
		TikTok:    2200,
		YouTube:   5000,
	}

	r := NewRegistry()
	for id, limit := range want {
		p, err := r.Lookup(id)
		require.NoError(t, err)
		got, ok := p.Limit()
		assert.True(t, ok, id)
		assert.Equal(t, limit, got, id)
	}

	snap, err := r.Lookup(Snapchat)
	require.NoError(t, err)
	_, ok := snap.Limit()
	assert.False(t, ok)
	assert.False(t, snap.SupportsAuthorization())
}

func TestLookupReturnsCopies(t *testing.T) {
	r := NewRegistry()

	p, _ := r.Lookup(YouTube)
	p.RequiredScopes[0] = "mutated"
	p.AuthParams["access_type"] = "online"

	again, _ := r.Lookup(YouTube)
	assert.Equal(t, "https://www.googleapis.com/auth/youtube.upload", again.RequiredScopes[0])
	assert.Equal(t, "offline", again.AuthParams["access_type"])
}

func TestAllKeepsTableOrder(t *testing.T) {
	var ids []string
	for _, p := range NewRegistry().All() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{Twitter, LinkedIn, Instagram, Facebook, TikTok, YouTube, Snapchat}, ids)
}

func TestNewRegistryFromPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistryFrom([]Platform{{ID: "a"}, {ID: "a"}})
	})
}

func TestTikTokUsesClientKey(t *testing.T) {
	p, err := NewRegistry().Lookup(TikTok)
	require.NoError(t, err)
	assert.Equal(t, "client_key", p.ClientIDParam)
	assert.True(t, p.RequiresMedia)
}
