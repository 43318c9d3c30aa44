package token

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessionStore struct {
	tokens    map[uint64]string
	tentative map[uint64]bool
	failSave  bool
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{tokens: map[uint64]string{}, tentative: map[uint64]bool{}}
}

func (m *memSessionStore) SaveSessionToken(_ context.Context, id uint64, tok string) error {
	if m.failSave {
		return errors.New("save failed")
	}
	m.tokens[id] = tok
	return nil
}

func (m *memSessionStore) CurrentSessionToken(_ context.Context, id uint64) (string, bool, error) {
	if !m.tentative[id] {
		return "", false, nil
	}
	tok, ok := m.tokens[id]
	return tok, ok, nil
}

func TestSessionRoundTrip(t *testing.T) {
	g, err := NewSessionGuard("session-secret")
	require.NoError(t, err)
	store := newMemSessionStore()
	store.tentative[42] = true
	ctx := context.Background()

	tok, err := g.Generate(ctx, store, 42)
	require.NoError(t, err)
	assert.Contains(t, tok, ":")

	ok, err := g.Validate(ctx, store, 42, tok)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionLastWriteWins(t *testing.T) {
	g, _ := NewSessionGuard("session-secret")
	store := newMemSessionStore()
	store.tentative[7] = true
	ctx := context.Background()

	first, err := g.Generate(ctx, store, 7)
	require.NoError(t, err)
	second, err := g.Generate(ctx, store, 7)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	ok, _ := g.Validate(ctx, store, 7, first)
	assert.False(t, ok)
	ok, _ = g.Validate(ctx, store, 7, second)
	assert.True(t, ok)
}

func TestSessionRejectsTampering(t *testing.T) {
	g, _ := NewSessionGuard("session-secret")
	store := newMemSessionStore()
	store.tentative[1] = true
	store.tentative[2] = true
	ctx := context.Background()

	tok, _ := g.Generate(ctx, store, 1)
	// valid signature but for a different reservation
	store.tokens[2] = tok
	ok, _ := g.Validate(ctx, store, 2, tok)
	assert.False(t, ok)

	nonce, _, _ := strings.Cut(tok, ":")
	for _, bad := range []string{"", "abc", nonce + ":", nonce + ":AAAA", ":" + nonce} {
		ok, err := g.Validate(ctx, store, 1, bad)
		assert.NoError(t, err)
		assert.False(t, ok, bad)
	}
}

func TestSessionRejectsNonTentative(t *testing.T) {
	g, _ := NewSessionGuard("session-secret")
	store := newMemSessionStore()
	store.tentative[9] = true
	ctx := context.Background()

	tok, _ := g.Generate(ctx, store, 9)
	store.tentative[9] = false
	ok, err := g.Validate(ctx, store, 9, tok)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionGenerateStoreError(t *testing.T) {
	g, _ := NewSessionGuard("session-secret")
	store := newMemSessionStore()
	store.failSave = true
	_, err := g.Generate(context.Background(), store, 1)
	assert.Error(t, err)
}

func TestSessionDifferentSecrets(t *testing.T) {
	a, _ := NewSessionGuard("a")
	b, _ := NewSessionGuard("b")
	store := newMemSessionStore()
	store.tentative[3] = true
	tok, _ := a.Generate(context.Background(), store, 3)
	assert.True(t, a.WellFormed(3, tok))
	assert.False(t, b.WellFormed(3, tok))
}

func TestAccessToken(t *testing.T) {
	g, err := NewAccessGuard("access-secret")
	require.NoError(t, err)

	tok := g.Generate(123)
	assert.Equal(t, tok, g.Generate(123))
	assert.NotContains(t, tok, "=")
	assert.True(t, g.Validate(123, tok))
	assert.False(t, g.Validate(124, tok))
	assert.False(t, g.Validate(123, tok+"x"))
	assert.False(t, g.Validate(123, ""))

	other, _ := NewAccessGuard("other-secret")
	assert.False(t, other.Validate(123, tok))
}

func TestEmptySecret(t *testing.T) {
	_, err := NewSessionGuard("")
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = NewAccessGuard("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
