package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSigner("secret")
	token, err := s.GenerateToken("acme", time.Hour)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.TenantID)
}

func TestSignerRejects(t *testing.T) {
	t.Parallel()

	s := NewSigner("secret")

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token, err := NewSigner("other").GenerateToken("acme", time.Hour)
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		past := NewSigner("secret")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateToken("acme", time.Hour)
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := s.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Parallel()
		_, err := NewSigner("").GenerateToken("acme", time.Hour)
		assert.ErrorIs(t, err, ErrNoSecret)
	})
}

func TestTenantResolver(t *testing.T) {
	t.Parallel()

	s := NewSigner("secret")
	resolve := TenantResolver(s)
	token, err := s.GenerateToken("acme", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, err := resolve(req)
	require.NoError(t, err)
	assert.Empty(t, id, "no token defers to the tenant header")

	req.Header.Set("Authorization", "Bearer "+token)
	id, err = resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", id)

	req.Header.Set("Authorization", "Basic abc")
	_, err = resolve(req)
	assert.ErrorIs(t, err, ErrInvalidToken)

	req.Header.Set("Authorization", "Bearer broken")
	_, err = resolve(req)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
