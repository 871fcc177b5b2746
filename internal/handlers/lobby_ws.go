// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/events"
	"github.com/wfoster/partyhub/internal/lobby"
	"github.com/wfoster/partyhub/internal/middleware"
)

// LobbyWSHandler upgrades /ws/lobby/{lobby_name}?player_name=... into the
// player's event stream. Joining over REST must happen first; the socket only
// attaches a connection to an existing player entity.
func LobbyWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		lobbyName := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/lobby/"), "/")
		playerName := r.URL.Query().Get("player_name")
		if lobbyName == "" || playerName == "" {
			http.Error(w, "missing lobby_name or player_name", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &lobby.Connection{
			ID:         uuid.New(),
			LobbyName:  lobbyName,
			PlayerName: playerName,
			Cancel:     cancel,
			OutChan:    make(chan events.Event, 32),
		}

		l, err := gs.LobbyStore.Register(conn)
		if err != nil {
			cancel()
			if errors.Is(err, lobby.ErrNotFound) {
				c.Close(LobbyNotFoundError, "lobby not found")
			} else {
				c.Close(PlayerNotInLobbyError, "player not in lobby")
			}
			return
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, lobbyName, playerName)

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, l, conn, gs, logger)

		gs.LobbyStore.Unregister(conn)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, lobbyName, playerName, readErr)
	}
}

// readPump consumes client events until the connection dies. Returns the
// terminal read error for logging; normal closes return nil.
func readPump(ctx context.Context, c *websocket.Conn, l *lobby.Lobby, conn *lobby.Connection, gs *GameServer, logger *logrus.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("lobby %s: non-text message from %s, ignoring", conn.LobbyName, conn.PlayerName)
			continue
		}

		var ev events.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			conn.WriteError("invalid JSON format")
			continue
		}
		handleClientEvent(l, conn, gs, ev)
	}
}

// handleClientEvent routes one inbound event. Protocol errors answer the
// offending connection only; the lobby never sees them.
func handleClientEvent(l *lobby.Lobby, conn *lobby.Connection, gs *GameServer, ev events.Event) {
	switch ev.Type {
	case events.TypePlayerReady:
		if err := gs.LobbyStore.SetReady(conn.LobbyName, conn.PlayerName, true); err != nil {
			conn.WriteError(err.Error())
		}
	case events.TypePlayerUnready:
		if err := gs.LobbyStore.SetReady(conn.LobbyName, conn.PlayerName, false); err != nil {
			conn.WriteError(err.Error())
		}
	case events.TypeChatMessage, "chat": // "chat" kept for older clients
		message, _ := ev.Payload["message"].(string)
		if strings.TrimSpace(message) == "" {
			conn.WriteError("empty chat message")
			return
		}
		l.Broadcast(events.New(events.TypeChatMessage, map[string]interface{}{
			"player_name": conn.PlayerName,
			"message":     message,
		}))
	case events.TypeGameAction:
		action, _ := ev.Payload["action"].(string)
		if action == "" {
			conn.WriteError("game_action requires an action")
			return
		}
		sess, ok := gs.Sessions.Get(conn.LobbyName)
		if !ok {
			conn.WriteError("no active game")
			return
		}
		sess.HandleAction(conn.PlayerName, events.Action(action), ev.Payload)
	case events.TypePing:
		conn.Write(events.New(events.TypePong, nil))
	default:
		conn.WriteError("unknown message type: " + string(ev.Type))
	}
}

// writePump drains the connection's out-channel onto the socket and pings
// periodically to keep intermediaries from idling the connection out.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("lobby %s: failed to marshal outgoing %s for %s: %v", conn.LobbyName, ev.Type, conn.PlayerName, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("lobby %s: write failed for %s: %v", conn.LobbyName, conn.PlayerName, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
