// internal/lobby/lobby_store.go
package lobby

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/events"
)

// MaxPlayers caps lobby membership.
const MaxPlayers = 12

// Host migration policies applied when the host player is explicitly removed.
const (
	MigrationNone    = "none"
	MigrationPromote = "promote"
)

// Store is the player/lobby registry: it owns every live lobby, keyed by the
// globally unique lobby name. Every successful mutation broadcasts a
// lobby_updated snapshot to the lobby's connections — that is the sole
// channel by which registry state reaches clients.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby

	// IssueToken mints a host token binding a lobby name to a host name.
	IssueToken func(lobbyName, hostName string) (string, error)

	// VerifyToken validates a presented token against a lobby and returns
	// the host name it was issued to.
	VerifyToken func(lobbyName, token string) (string, error)

	// HostMigration is MigrationNone (default) or MigrationPromote.
	HostMigration string

	// OnEmpty is invoked after the last connection of a lobby goes away and
	// the lobby has been deleted; the game server uses it to tear down any
	// session still attached to the lobby name.
	OnEmpty func(lobbyName string)
}

// NewStore initializes an empty registry.
func NewStore() *Store {
	return &Store{
		lobbies:       make(map[string]*Lobby),
		HostMigration: MigrationNone,
	}
}

// GetLobby retrieves a lobby by name.
func (s *Store) GetLobby(name string) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[name]
	return l, ok
}

// LobbyInfo is the public listing entry for lobby discovery.
type LobbyInfo struct {
	LobbyName   string    `json:"lobby_name"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
	GameState   GameState `json:"game_state"`
}

// ListLobbies returns discovery info for every live lobby.
func (s *Store) ListLobbies() []LobbyInfo {
	s.mu.Lock()
	lobbies := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		lobbies = append(lobbies, l)
	}
	s.mu.Unlock()

	infos := make([]LobbyInfo, 0, len(lobbies))
	for _, l := range lobbies {
		l.Mu.Lock()
		infos = append(infos, LobbyInfo{
			LobbyName:   l.Name,
			PlayerCount: len(l.Players),
			MaxPlayers:  MaxPlayers,
			GameState:   l.GameState,
		})
		l.Mu.Unlock()
	}
	return infos
}

// CreateLobby registers a new lobby with its host as the first player and
// returns it along with a freshly minted host token. Fails with
// ErrNameConflict if the lobby name is taken.
func (s *Store) CreateLobby(lobbyName, hostName string) (*Lobby, string, error) {
	if err := ValidateName(lobbyName); err != nil {
		return nil, "", fmt.Errorf("lobby name %q: %w", lobbyName, err)
	}
	if err := ValidateName(hostName); err != nil {
		return nil, "", fmt.Errorf("player name %q: %w", hostName, err)
	}

	token, err := s.IssueToken(lobbyName, hostName)
	if err != nil {
		return nil, "", fmt.Errorf("issue host token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[lobbyName]; exists {
		return nil, "", fmt.Errorf("lobby %q: %w", lobbyName, ErrNameConflict)
	}
	l := NewLobby(lobbyName, hostName)
	s.lobbies[lobbyName] = l
	logrus.Infof("lobby %s created by %s", lobbyName, hostName)
	return l, token, nil
}

// JoinLobby adds a player to an existing lobby. Fails with ErrNotFound if
// the lobby is absent, ErrNameConflict if the name is taken in that lobby,
// and ErrPreconditionFailed while a game session is active or the lobby is
// full. No mid-game joins.
func (s *Store) JoinLobby(lobbyName, playerName string) (*Lobby, error) {
	if err := ValidateName(playerName); err != nil {
		return nil, fmt.Errorf("player name %q: %w", playerName, err)
	}
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return nil, fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	if l.Removed[playerName] {
		l.Mu.Unlock()
		return nil, fmt.Errorf("player %q: %w", playerName, ErrPlayerRemoved)
	}
	if l.PlayerUnsafe(playerName) != nil {
		l.Mu.Unlock()
		return nil, fmt.Errorf("player %q: %w", playerName, ErrNameConflict)
	}
	if len(l.Players) >= MaxPlayers {
		l.Mu.Unlock()
		return nil, fmt.Errorf("lobby %q full: %w", lobbyName, ErrPreconditionFailed)
	}
	if l.GameState != StateWaiting {
		l.Mu.Unlock()
		return nil, fmt.Errorf("game in progress in %q: %w", lobbyName, ErrPreconditionFailed)
	}
	l.AddPlayerUnsafe(playerName)
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()

	fanOut(conns, snapshot)
	return l, nil
}

// SetReady sets a player's ready flag. Idempotent; affects only whether a
// game may start.
func (s *Store) SetReady(lobbyName, playerName string, ready bool) error {
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	p := l.PlayerUnsafe(playerName)
	if p == nil {
		l.Mu.Unlock()
		return fmt.Errorf("player %q: %w", playerName, ErrNotFound)
	}
	if p.IsReady == ready {
		l.Mu.Unlock()
		return nil
	}
	p.IsReady = ready
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()

	fanOut(conns, snapshot)
	return nil
}

// ToggleReady flips a player's ready flag and returns the new value.
func (s *Store) ToggleReady(lobbyName, playerName string) (bool, error) {
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return false, fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	p := l.PlayerUnsafe(playerName)
	if p == nil {
		l.Mu.Unlock()
		return false, fmt.Errorf("player %q: %w", playerName, ErrNotFound)
	}
	p.IsReady = !p.IsReady
	ready := p.IsReady
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()

	fanOut(conns, snapshot)
	return ready, nil
}

// AuthorizeStart validates a start_game request: host token, quorum (>=2),
// all players ready, no session already active. On success the lobby is
// atomically moved to the starting state and returned; the caller installs
// the session and must call AbortStart if that fails.
func (s *Store) AuthorizeStart(lobbyName, token string) (*Lobby, error) {
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return nil, fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()
	hostName, err := s.VerifyToken(lobbyName, token)
	if err != nil || hostName != l.HostName {
		return nil, fmt.Errorf("host token for %q: %w", lobbyName, ErrForbidden)
	}
	if len(l.Players) < 2 {
		return nil, fmt.Errorf("need at least 2 players: %w", ErrPreconditionFailed)
	}
	if !l.AllReadyUnsafe() {
		return nil, fmt.Errorf("not all players ready: %w", ErrPreconditionFailed)
	}
	if l.GameState != StateWaiting {
		return nil, fmt.Errorf("game already active: %w", ErrPreconditionFailed)
	}
	l.GameState = StateStarting
	return l, nil
}

// AbortStart reverts a lobby left in the starting state by a failed session
// installation.
func (s *Store) AbortStart(l *Lobby) {
	l.Mu.Lock()
	if l.GameState == StateStarting {
		l.GameState = StateWaiting
	}
	l.Mu.Unlock()
}

// SetGameState records a session lifecycle transition on the lobby and
// broadcasts the updated snapshot.
func (s *Store) SetGameState(l *Lobby, st GameState) {
	l.Mu.Lock()
	l.GameState = st
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()
	fanOut(conns, snapshot)
}

// FinishGame returns a lobby to the browsing state after a session reached
// its terminal phase: ready flags clear, snapshot broadcast.
func (s *Store) FinishGame(l *Lobby) {
	l.Mu.Lock()
	l.GameState = StateWaiting
	l.ResetReadyUnsafe()
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()
	fanOut(conns, snapshot)
}

// RemovePlayer deletes a player entity from the lobby (host-authorized
// administrative removal). If the removed player was the host, the configured
// migration policy applies; under MigrationPromote the earliest-joined
// remaining player becomes host and privately receives a fresh host token.
// Removing the last player deletes the lobby.
func (s *Store) RemovePlayer(lobbyName, playerName string) error {
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	if !l.RemovePlayerUnsafe(playerName) {
		l.Mu.Unlock()
		return fmt.Errorf("player %q: %w", playerName, ErrNotFound)
	}

	if len(l.Players) == 0 {
		l.Mu.Unlock()
		s.deleteLobby(lobbyName)
		return nil
	}

	var promoted string
	var promotedToken string
	if playerName == l.HostName && s.HostMigration == MigrationPromote {
		promoted = l.Players[0].Name
		l.HostName = promoted
		if tok, err := s.IssueToken(lobbyName, promoted); err == nil {
			promotedToken = tok
		} else {
			logrus.Errorf("lobby %s: failed to mint token for promoted host %s: %v", lobbyName, promoted, err)
		}
	}

	left := events.New(events.TypePlayerLeft, map[string]interface{}{"player_name": playerName})
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	var hostConn *Connection
	if promoted != "" {
		hostConn = l.Connections[promoted]
	}
	l.Mu.Unlock()

	fanOut(conns, left, snapshot)
	if hostConn != nil && promotedToken != "" {
		// Private delivery only: the token must never ride a broadcast.
		priv := snapshot
		priv.Payload = map[string]interface{}{
			"lobby":      snapshot.Payload["lobby"],
			"host_token": promotedToken,
		}
		hostConn.Write(priv)
	}
	return nil
}

// DeleteLobby tears a lobby down if the presented host token is valid.
func (s *Store) DeleteLobby(lobbyName, token string) error {
	l, ok := s.GetLobby(lobbyName)
	if !ok {
		return fmt.Errorf("lobby %q: %w", lobbyName, ErrNotFound)
	}
	l.Mu.Lock()
	hostName, err := s.VerifyToken(lobbyName, token)
	if err != nil || hostName != l.HostName {
		l.Mu.Unlock()
		return fmt.Errorf("host token for %q: %w", lobbyName, ErrForbidden)
	}
	for name, conn := range l.Connections {
		delete(l.Connections, name)
		closeConnection(conn)
	}
	l.Mu.Unlock()
	s.deleteLobby(lobbyName)
	return nil
}

// Register attaches a live connection for a player already in the lobby.
// Fails with ErrNotFound if the lobby is gone and ErrPlayerRemoved if the
// player is not (or no longer) a member; the transport maps those onto its
// distinguished terminal close codes.
func (s *Store) Register(conn *Connection) (*Lobby, error) {
	l, ok := s.GetLobby(conn.LobbyName)
	if !ok {
		return nil, fmt.Errorf("lobby %q: %w", conn.LobbyName, ErrNotFound)
	}

	l.Mu.Lock()
	if l.Removed[conn.PlayerName] || l.PlayerUnsafe(conn.PlayerName) == nil {
		l.Mu.Unlock()
		return nil, fmt.Errorf("player %q: %w", conn.PlayerName, ErrPlayerRemoved)
	}
	l.AttachConnectionUnsafe(conn)
	joined := events.New(events.TypePlayerJoined, map[string]interface{}{"player_name": conn.PlayerName})
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()

	// player_joined goes to the others; the new connection gets the snapshot.
	for _, c := range conns {
		if c != conn {
			c.Write(joined)
		}
		c.Write(snapshot)
	}
	return l, nil
}

// Unregister detaches a connection after close or transport failure. The
// player entity and any in-flight game state survive; remaining members are
// notified. When no connections remain the lobby is deleted.
func (s *Store) Unregister(conn *Connection) {
	l, ok := s.GetLobby(conn.LobbyName)
	if !ok {
		return
	}

	l.Mu.Lock()
	if !l.DetachConnectionUnsafe(conn) {
		// A newer connection replaced this one; nothing to announce.
		l.Mu.Unlock()
		return
	}
	empty := len(l.Connections) == 0
	left := events.New(events.TypePlayerLeft, map[string]interface{}{"player_name": conn.PlayerName})
	snapshot := l.SnapshotEventUnsafe()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()

	fanOut(conns, left, snapshot)
	if empty {
		s.deleteLobby(conn.LobbyName)
	}
}

func (s *Store) deleteLobby(name string) {
	s.mu.Lock()
	_, existed := s.lobbies[name]
	delete(s.lobbies, name)
	s.mu.Unlock()
	if existed {
		logrus.Infof("lobby %s deleted", name)
		if s.OnEmpty != nil {
			s.OnEmpty(name)
		}
	}
}

func fanOut(conns []*Connection, evs ...events.Event) {
	for _, ev := range evs {
		for _, c := range conns {
			c.Write(ev)
		}
	}
}
