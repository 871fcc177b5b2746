// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the lobby websocket endpoint. These
// give clients a precise terminal reason instead of a generic policy error.
const (
	// BadSubprotocolError: client connected without the lobby subprotocol.
	BadSubprotocolError websocket.StatusCode = 3000

	// LobbyNotFoundError: the lobby named in the WS URL does not exist.
	LobbyNotFoundError websocket.StatusCode = 4004

	// PlayerNotInLobbyError: the player is not a lobby member, or was
	// removed and may not reconnect under that name.
	PlayerNotInLobbyError websocket.StatusCode = 4009
)
