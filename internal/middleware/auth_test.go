package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	token, err := bearerToken(r)
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	// Scheme match is case-insensitive.
	r.Header.Set("Authorization", "bearer abc123")
	token, err = bearerToken(r)
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	r.Header.Set("Authorization", "Basic abc123")
	_, err = bearerToken(r)
	require.Error(t, err)

	r.Header.Del("Authorization")
	_, err = bearerToken(r)
	require.Error(t, err)
}
