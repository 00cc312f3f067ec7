package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The signing key must be read at use time, not at package init: in main the
// key only lands in the environment once bootstrap loads .env.
func TestJWTKeyReadAfterInit(t *testing.T) {
	t.Setenv("JWT_KEY", "late-loaded-secret")

	token, err := GenerateJWT("64f0c9e2a1b2c3d4e5f60718", "maria", "Maria", RolePatient, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "64f0c9e2a1b2c3d4e5f60718", claims.UserID)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, RolePatient, claims.Role)

	assert.Equal(t, []byte("late-loaded-secret"), GetJWTKey())
}

func TestValidateJWTRejectsWrongKey(t *testing.T) {
	t.Setenv("JWT_KEY", "first-key")
	token, err := GenerateJWT("64f0c9e2a1b2c3d4e5f60718", "maria", "Maria", RolePatient, time.Hour)
	require.NoError(t, err)

	t.Setenv("JWT_KEY", "rotated-key")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
