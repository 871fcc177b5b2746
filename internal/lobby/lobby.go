// internal/lobby/lobby.go
package lobby

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/events"
)

// GameState mirrors the generic session lifecycle as seen from the lobby.
type GameState string

const (
	StateWaiting    GameState = "waiting"
	StateStarting   GameState = "starting"
	StateInProgress GameState = "in_progress"
)

// Player is a named participant of one lobby. Names are unique within a lobby
// (case-sensitive). The entity survives connection drops; only explicit
// removal or lobby teardown destroys it.
type Player struct {
	Name    string `json:"name"`
	IsReady bool   `json:"is_ready"`

	// ConnID references the live connection, uuid.Nil while disconnected.
	ConnID uuid.UUID `json:"-"`
}

// Connection is a single player's live presence in a lobby.
type Connection struct {
	ID         uuid.UUID
	LobbyName  string
	PlayerName string
	Cancel     func()
	OutChan    chan events.Event
}

// Write pushes an event onto the connection's out-channel without blocking.
// A full or closed channel drops the event; a slow consumer must never stall
// the lobby or other players.
func (c *Connection) Write(ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("lobby %s: write to closed channel for player %s", c.LobbyName, c.PlayerName)
		}
	}()
	select {
	case c.OutChan <- ev:
	default:
		logrus.Warnf("lobby %s: out-channel for player %s full, dropped %s", c.LobbyName, c.PlayerName, ev.Type)
	}
}

// WriteError sends an error event to this connection only.
func (c *Connection) WriteError(msg string) {
	c.Write(events.ErrorEvent(msg))
}

// Lobby is a named room grouping players before and between games. It owns
// its players and the set of live connections; Mu guards all of it.
// Different lobbies share nothing mutable and proceed fully in parallel.
//
// Methods suffixed Unsafe assume Mu is held by the caller.
type Lobby struct {
	Name      string
	HostName  string
	GameState GameState

	// Players in join order; join order is the tiebreaker for rankings.
	Players []*Player

	// Connections keyed by player name. A player missing here is simply
	// disconnected, not gone.
	Connections map[string]*Connection

	// Removed records players the host explicitly removed; they may not
	// reconnect under the same name.
	Removed map[string]bool

	Mu sync.Mutex
}

// NewLobby builds a lobby containing only the host, in the waiting state.
func NewLobby(name, hostName string) *Lobby {
	return &Lobby{
		Name:        name,
		HostName:    hostName,
		GameState:   StateWaiting,
		Players:     []*Player{{Name: hostName}},
		Connections: make(map[string]*Connection),
		Removed:     make(map[string]bool),
	}
}

// PlayerUnsafe returns the player with the given name, or nil.
func (l *Lobby) PlayerUnsafe(name string) *Player {
	for _, p := range l.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PlayerNamesUnsafe returns player names in join order.
func (l *Lobby) PlayerNamesUnsafe() []string {
	names := make([]string, len(l.Players))
	for i, p := range l.Players {
		names[i] = p.Name
	}
	return names
}

// AddPlayerUnsafe appends a player. Callers validate the name and uniqueness.
func (l *Lobby) AddPlayerUnsafe(name string) *Player {
	p := &Player{Name: name}
	l.Players = append(l.Players, p)
	return p
}

// RemovePlayerUnsafe deletes the player entity and any live connection, and
// bars the name from reconnecting. Returns false if the player is absent.
func (l *Lobby) RemovePlayerUnsafe(name string) bool {
	idx := -1
	for i, p := range l.Players {
		if p.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	l.Players = append(l.Players[:idx], l.Players[idx+1:]...)
	l.Removed[name] = true
	if conn, ok := l.Connections[name]; ok {
		delete(l.Connections, name)
		closeConnection(conn)
	}
	return true
}

// AllReadyUnsafe reports whether the lobby can start: at least two players,
// all of them ready.
func (l *Lobby) AllReadyUnsafe() bool {
	if len(l.Players) < 2 {
		return false
	}
	for _, p := range l.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// ResetReadyUnsafe clears every player's ready flag (after a game finishes).
func (l *Lobby) ResetReadyUnsafe() {
	for _, p := range l.Players {
		p.IsReady = false
	}
}

// AttachConnectionUnsafe installs a live connection for a player, replacing
// (and closing) any previous one for the same name.
func (l *Lobby) AttachConnectionUnsafe(conn *Connection) {
	if old, ok := l.Connections[conn.PlayerName]; ok && old != conn {
		closeConnection(old)
	}
	l.Connections[conn.PlayerName] = conn
	if p := l.PlayerUnsafe(conn.PlayerName); p != nil {
		p.ConnID = conn.ID
	}
}

// DetachConnectionUnsafe removes a connection if it is still the current one
// for its player. The player entity survives. Returns true if detached.
func (l *Lobby) DetachConnectionUnsafe(conn *Connection) bool {
	cur, ok := l.Connections[conn.PlayerName]
	if !ok || cur != conn {
		return false
	}
	delete(l.Connections, conn.PlayerName)
	if p := l.PlayerUnsafe(conn.PlayerName); p != nil {
		p.ConnID = uuid.Nil
	}
	return true
}

// BroadcastUnsafe delivers an event to every live connection. Write is
// non-blocking, so one stalled connection cannot hold up the rest.
func (l *Lobby) BroadcastUnsafe(ev events.Event) {
	for _, conn := range l.Connections {
		conn.Write(ev)
	}
}

// Broadcast snapshots the connection set under the lock, then fans out after
// releasing it.
func (l *Lobby) Broadcast(ev events.Event) {
	l.Mu.Lock()
	conns := l.connectionsUnsafe()
	l.Mu.Unlock()
	for _, conn := range conns {
		conn.Write(ev)
	}
}

// SendToUnsafe delivers an event to a single player's connection, if live.
// Host-only payloads (judging answers, host controls, host tokens) travel
// exclusively through this path, never Broadcast.
func (l *Lobby) SendToUnsafe(playerName string, ev events.Event) {
	if conn, ok := l.Connections[playerName]; ok {
		conn.Write(ev)
	}
}

// SendTo is the locking wrapper around SendToUnsafe.
func (l *Lobby) SendTo(playerName string, ev events.Event) {
	l.Mu.Lock()
	conn := l.Connections[playerName]
	l.Mu.Unlock()
	if conn != nil {
		conn.Write(ev)
	}
}

func (l *Lobby) connectionsUnsafe() []*Connection {
	conns := make([]*Connection, 0, len(l.Connections))
	for _, c := range l.Connections {
		conns = append(conns, c)
	}
	return conns
}

// SnapshotUnsafe builds the lobby_updated payload: the full public view of
// the lobby. Host tokens never appear here.
func (l *Lobby) SnapshotUnsafe() map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, map[string]interface{}{
			"name":      p.Name,
			"is_ready":  p.IsReady,
			"connected": p.ConnID != uuid.Nil,
		})
	}
	return map[string]interface{}{
		"lobby": map[string]interface{}{
			"lobby_name": l.Name,
			"host":       l.HostName,
			"game_state": string(l.GameState),
			"players":    players,
		},
	}
}

// SnapshotEventUnsafe wraps SnapshotUnsafe into a lobby_updated event.
func (l *Lobby) SnapshotEventUnsafe() events.Event {
	return events.New(events.TypeLobbyUpdated, l.SnapshotUnsafe())
}

func closeConnection(conn *Connection) {
	// Closing in a goroutine avoids blocking lobby mutation on a connection
	// whose pumps are mid-teardown.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Warnf("lobby: recovered closing connection for %s: %v", conn.PlayerName, r)
			}
		}()
		close(conn.OutChan)
		if conn.Cancel != nil {
			conn.Cancel()
		}
	}()
}
