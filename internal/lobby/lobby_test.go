// internal/lobby/lobby_test.go
package lobby

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfoster/partyhub/internal/events"
)

// newTestStore wires a registry with a transparent token scheme so tests
// never need real JWT plumbing.
func newTestStore() *Store {
	s := NewStore()
	s.IssueToken = func(lobbyName, hostName string) (string, error) {
		return lobbyName + "|" + hostName, nil
	}
	s.VerifyToken = func(lobbyName, token string) (string, error) {
		prefix := lobbyName + "|"
		if !strings.HasPrefix(token, prefix) {
			return "", errors.New("bad token")
		}
		return strings.TrimPrefix(token, prefix), nil
	}
	return s
}

func newTestConn(lobbyName, playerName string) *Connection {
	return &Connection{
		ID:         uuid.New(),
		LobbyName:  lobbyName,
		PlayerName: playerName,
		Cancel:     func() {},
		OutChan:    make(chan events.Event, 32),
	}
}

// drain empties a connection's out-channel and returns what was queued.
func drain(c *Connection) []events.Event {
	var evs []events.Event
	for {
		select {
		case ev := <-c.OutChan:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func TestCreateLobbyNameConflict(t *testing.T) {
	s := newTestStore()
	_, token, err := s.CreateLobby("game-night", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = s.CreateLobby("game-night", "bob")
	assert.ErrorIs(t, err, ErrNameConflict)
}

func TestNameValidation(t *testing.T) {
	s := newTestStore()
	cases := []string{"", "   ", strings.Repeat("x", 21), "admin", "HOST", "Server", "bot"}
	for _, name := range cases {
		_, _, err := s.CreateLobby(name, "alice")
		assert.ErrorIs(t, err, ErrInvalidName, "lobby name %q", name)
		_, _, err = s.CreateLobby("room", name)
		assert.ErrorIs(t, err, ErrInvalidName, "player name %q", name)
	}
}

func TestJoinLobby(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	// Duplicate player names are rejected case-sensitively.
	_, err = s.JoinLobby("room", "bob")
	assert.ErrorIs(t, err, ErrNameConflict)
	_, err = s.JoinLobby("room", "Bob")
	assert.NoError(t, err)

	_, err = s.JoinLobby("nope", "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinLobbyFull(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "p0")
	require.NoError(t, err)
	for i := 1; i < MaxPlayers; i++ {
		_, err := s.JoinLobby("room", fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}
	_, err = s.JoinLobby("room", "straggler")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestJoinBlockedWhileGameActive(t *testing.T) {
	s := newTestStore()
	l, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	l.Mu.Lock()
	l.GameState = StateInProgress
	l.Mu.Unlock()

	_, err = s.JoinLobby("room", "carol")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestAuthorizeStartPreconditions(t *testing.T) {
	s := newTestStore()
	_, token, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	// Solo host cannot start.
	_, err = s.AuthorizeStart("room", token)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	// Not everyone ready.
	require.NoError(t, s.SetReady("room", "alice", true))
	_, err = s.AuthorizeStart("room", token)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	require.NoError(t, s.SetReady("room", "bob", true))

	// Wrong token.
	_, err = s.AuthorizeStart("room", "other|mallory")
	assert.ErrorIs(t, err, ErrForbidden)

	l, err := s.AuthorizeStart("room", token)
	require.NoError(t, err)
	assert.Equal(t, StateStarting, l.GameState)

	// A second start while one is active fails.
	_, err = s.AuthorizeStart("room", token)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	s.AbortStart(l)
	assert.Equal(t, StateWaiting, l.GameState)
}

func TestReadyBroadcastsLobbyUpdated(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	conn := newTestConn("room", "alice")
	_, err = s.Register(conn)
	require.NoError(t, err)
	drain(conn)

	require.NoError(t, s.SetReady("room", "bob", true))
	evs := drain(conn)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeLobbyUpdated, evs[0].Type)

	// Idempotent: no change, no broadcast.
	require.NoError(t, s.SetReady("room", "bob", true))
	assert.Empty(t, drain(conn))
}

func TestRegisterRejectsUnknownPlayers(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	_, err = s.Register(newTestConn("nope", "alice"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Register(newTestConn("room", "mallory"))
	assert.ErrorIs(t, err, ErrPlayerRemoved)
}

func TestUnregisterKeepsPlayerEntity(t *testing.T) {
	s := newTestStore()
	l, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	aliceConn := newTestConn("room", "alice")
	bobConn := newTestConn("room", "bob")
	_, err = s.Register(aliceConn)
	require.NoError(t, err)
	_, err = s.Register(bobConn)
	require.NoError(t, err)
	drain(aliceConn)

	s.Unregister(bobConn)

	l.Mu.Lock()
	bob := l.PlayerUnsafe("bob")
	l.Mu.Unlock()
	require.NotNil(t, bob, "disconnect must not delete the player entity")
	assert.Equal(t, uuid.Nil, bob.ConnID)

	evs := drain(aliceConn)
	var types []events.Type
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, events.TypePlayerLeft)
	assert.Contains(t, types, events.TypeLobbyUpdated)
}

func TestLastDisconnectDeletesLobby(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	var emptied []string
	s.OnEmpty = func(name string) { emptied = append(emptied, name) }

	conn := newTestConn("room", "alice")
	_, err = s.Register(conn)
	require.NoError(t, err)
	s.Unregister(conn)

	_, ok := s.GetLobby("room")
	assert.False(t, ok)
	assert.Equal(t, []string{"room"}, emptied)
}

func TestRemovePlayerBarsReconnect(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)

	require.NoError(t, s.RemovePlayer("room", "bob"))

	_, err = s.JoinLobby("room", "bob")
	assert.ErrorIs(t, err, ErrPlayerRemoved)
	_, err = s.Register(newTestConn("room", "bob"))
	assert.ErrorIs(t, err, ErrPlayerRemoved)
}

func TestRemoveHostPromotesEarliestJoiner(t *testing.T) {
	s := newTestStore()
	s.HostMigration = MigrationPromote
	l, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "bob")
	require.NoError(t, err)
	_, err = s.JoinLobby("room", "carol")
	require.NoError(t, err)

	bobConn := newTestConn("room", "bob")
	carolConn := newTestConn("room", "carol")
	_, err = s.Register(bobConn)
	require.NoError(t, err)
	_, err = s.Register(carolConn)
	require.NoError(t, err)
	drain(bobConn)
	drain(carolConn)

	require.NoError(t, s.RemovePlayer("room", "alice"))

	l.Mu.Lock()
	host := l.HostName
	l.Mu.Unlock()
	assert.Equal(t, "bob", host, "earliest-joined player is promoted")

	var bobToken string
	for _, ev := range drain(bobConn) {
		if tok, ok := ev.Payload["host_token"].(string); ok {
			bobToken = tok
		}
	}
	assert.Equal(t, "room|bob", bobToken, "new host privately receives a fresh token")

	for _, ev := range drain(carolConn) {
		_, leaked := ev.Payload["host_token"]
		assert.False(t, leaked, "host token must never reach other players")
	}
}

func TestRemoveLastPlayerDeletesLobby(t *testing.T) {
	s := newTestStore()
	_, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)
	require.NoError(t, s.RemovePlayer("room", "alice"))
	_, ok := s.GetLobby("room")
	assert.False(t, ok)
}

func TestDeleteLobbyRequiresHostToken(t *testing.T) {
	s := newTestStore()
	_, token, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	err = s.DeleteLobby("room", "room|mallory")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, s.DeleteLobby("room", token))
	_, ok := s.GetLobby("room")
	assert.False(t, ok)
}

func TestSnapshotShape(t *testing.T) {
	s := newTestStore()
	l, _, err := s.CreateLobby("room", "alice")
	require.NoError(t, err)

	l.Mu.Lock()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()

	lob := snap["lobby"].(map[string]interface{})
	assert.Equal(t, "room", lob["lobby_name"])
	assert.Equal(t, "alice", lob["host"])
	assert.Equal(t, "waiting", lob["game_state"])
	players := lob["players"].([]map[string]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, "alice", players[0]["name"])
	assert.Equal(t, false, players[0]["is_ready"])
}
