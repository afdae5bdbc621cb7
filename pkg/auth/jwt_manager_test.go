package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, expiry, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Generate("user-1")
	require.NoError(t, err)

	_, _, err = NewJWTManager("secret-b", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.Generate("user-1")
	require.NoError(t, err)

	_, _, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsEmptySubject(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("")
	require.NoError(t, err)

	_, _, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	_, _, err := m.Verify("not.a.token")
	require.Error(t, err)
}
