// internal/auth/token_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostTokenRoundTrip(t *testing.T) {
	Init()

	token, err := CreateHostToken("game-night", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	hostName, err := VerifyHostToken("game-night", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", hostName)
}

func TestHostTokenBoundToLobby(t *testing.T) {
	Init()

	token, err := CreateHostToken("game-night", "alice")
	require.NoError(t, err)

	_, err = VerifyHostToken("other-room", token)
	assert.Error(t, err, "a token must not authorize host actions in another lobby")
}

func TestHostTokenRejectsGarbage(t *testing.T) {
	Init()

	_, err := VerifyHostToken("game-night", "not-a-token")
	assert.Error(t, err)
}
