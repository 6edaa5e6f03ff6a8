package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")

	token, err := j.Sign(42)
	require.NoError(t, err)

	uid, err := j.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, uid)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign(1)
	require.NoError(t, err)

	_, err = NewJWT("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	_, err := NewJWT("secret").Verify("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)

	assert.True(t, ComparePassword(hash, "hunter2hunter2"))
	assert.False(t, ComparePassword(hash, "wrong"))
}
