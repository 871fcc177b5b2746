// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/lobby"
)

type createLobbyRequest struct {
	LobbyName  string `json:"lobby_name"`
	PlayerName string `json:"player_name"`
}

type joinLobbyRequest struct {
	LobbyName  string `json:"lobby_name"`
	PlayerName string `json:"player_name"`
}

type readyRequest struct {
	PlayerName string `json:"player_name"`
}

type startGameRequest struct {
	GameType  string `json:"game_type"`
	HostToken string `json:"host_token"`
}

type removePlayerRequest struct {
	PlayerName string `json:"player_name"`
	HostToken  string `json:"host_token"`
}

type deleteLobbyRequest struct {
	HostToken string `json:"host_token"`
}

// LobbyHandler serves the REST control plane under /lobby/:
//
//	POST   /lobby/create          {lobby_name, player_name} -> lobby + host_token
//	POST   /lobby/join            {lobby_name, player_name} -> lobby
//	GET    /lobby/                -> lobby listing
//	GET    /lobby/{name}          -> lobby snapshot
//	POST   /lobby/{name}/ready    {player_name} -> toggled ready flag
//	POST   /lobby/{name}/start    {game_type, host_token}
//	POST   /lobby/{name}/remove   {player_name, host_token}
//	DELETE /lobby/{name}          {host_token}
func LobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/lobby"), "/")
		parts := strings.Split(rest, "/")

		switch {
		case rest == "" && r.Method == http.MethodGet:
			listLobbies(gs, w)
		case rest == "create" && r.Method == http.MethodPost:
			createLobby(gs, w, r)
		case rest == "join" && r.Method == http.MethodPost:
			joinLobby(gs, w, r)
		case len(parts) == 1 && r.Method == http.MethodGet:
			getLobby(gs, w, parts[0])
		case len(parts) == 1 && r.Method == http.MethodDelete:
			deleteLobby(gs, w, r, parts[0])
		case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "ready":
			toggleReady(gs, w, r, parts[0])
		case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "start":
			startGame(gs, w, r, parts[0])
		case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "remove":
			removePlayer(gs, w, r, parts[0])
		default:
			writeJSONError(w, http.StatusNotFound, "unknown lobby endpoint")
		}
	}
}

func createLobby(gs *GameServer, w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	l, token, err := gs.LobbyStore.CreateLobby(req.LobbyName, req.PlayerName)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	l.Mu.Lock()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()
	snap["host_token"] = token
	writeJSON(w, http.StatusCreated, snap)
}

func joinLobby(gs *GameServer, w http.ResponseWriter, r *http.Request) {
	var req joinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	l, err := gs.LobbyStore.JoinLobby(req.LobbyName, req.PlayerName)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	l.Mu.Lock()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func listLobbies(gs *GameServer, w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lobbies": gs.LobbyStore.ListLobbies(),
	})
}

func getLobby(gs *GameServer, w http.ResponseWriter, lobbyName string) {
	l, ok := gs.LobbyStore.GetLobby(lobbyName)
	if !ok {
		writeLobbyError(w, lobby.ErrNotFound)
		return
	}
	l.Mu.Lock()
	snap := l.SnapshotUnsafe()
	l.Mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func toggleReady(gs *GameServer, w http.ResponseWriter, r *http.Request, lobbyName string) {
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ready, err := gs.LobbyStore.ToggleReady(lobbyName, req.PlayerName)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player_name": req.PlayerName,
		"is_ready":    ready,
	})
}

func startGame(gs *GameServer, w http.ResponseWriter, r *http.Request, lobbyName string) {
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := gs.StartGame(lobbyName, req.GameType, req.HostToken); err != nil {
		writeLobbyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"game_type": req.GameType,
	})
}

func removePlayer(gs *GameServer, w http.ResponseWriter, r *http.Request, lobbyName string) {
	var req removePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := authorizeHost(gs, lobbyName, req.HostToken); err != nil {
		writeLobbyError(w, err)
		return
	}
	if err := gs.LobbyStore.RemovePlayer(lobbyName, req.PlayerName); err != nil {
		writeLobbyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func deleteLobby(gs *GameServer, w http.ResponseWriter, r *http.Request, lobbyName string) {
	var req deleteLobbyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.HostToken == "" {
		req.HostToken = r.URL.Query().Get("host_token")
	}
	if err := gs.LobbyStore.DeleteLobby(lobbyName, req.HostToken); err != nil {
		writeLobbyError(w, err)
		return
	}
	gs.Sessions.Drop(lobbyName)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// authorizeHost checks that a token is the current host token for a lobby.
func authorizeHost(gs *GameServer, lobbyName, token string) error {
	l, ok := gs.LobbyStore.GetLobby(lobbyName)
	if !ok {
		return lobby.ErrNotFound
	}
	hostName, err := gs.LobbyStore.VerifyToken(lobbyName, token)
	l.Mu.Lock()
	currentHost := l.HostName
	l.Mu.Unlock()
	if err != nil || hostName != currentHost {
		return lobby.ErrForbidden
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"detail": msg})
}

// writeLobbyError maps registry sentinels onto HTTP statuses.
func writeLobbyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lobby.ErrNameConflict):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lobby.ErrPreconditionFailed):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lobby.ErrForbidden), errors.Is(err, lobby.ErrPlayerRemoved):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, lobby.ErrInvalidName):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
