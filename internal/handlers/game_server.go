// internal/handlers/game_server.go
package handlers

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/auth"
	"github.com/wfoster/partyhub/internal/events"
	"github.com/wfoster/partyhub/internal/game"
	"github.com/wfoster/partyhub/internal/journal"
	"github.com/wfoster/partyhub/internal/lobby"
)

// GameServer glues the lobby registry to the per-lobby game sessions. It owns
// both stores and wires the callbacks between them.
type GameServer struct {
	LobbyStore *lobby.Store
	Sessions   *game.SessionStore

	// Bank feeds Buzzer Trivia questions; embedded by default, Postgres-backed
	// when DATABASE_URL is configured.
	Bank game.QuestionBank

	// ChallengePolicy governs missed Tap Gauntlet anti-cheat prompts.
	ChallengePolicy game.ChallengePolicy
}

// NewGameServer builds the server with host tokens, host migration policy,
// and session teardown wired in.
func NewGameServer(bank game.QuestionBank) *GameServer {
	gs := &GameServer{
		LobbyStore:      lobby.NewStore(),
		Sessions:        game.NewSessionStore(),
		Bank:            bank,
		ChallengePolicy: game.ParseChallengePolicy(os.Getenv("TAP_CHALLENGE_POLICY")),
	}
	gs.LobbyStore.IssueToken = auth.CreateHostToken
	gs.LobbyStore.VerifyToken = auth.VerifyHostToken
	if os.Getenv("HOST_MIGRATION") == lobby.MigrationPromote {
		gs.LobbyStore.HostMigration = lobby.MigrationPromote
	}
	gs.LobbyStore.OnEmpty = func(lobbyName string) {
		gs.Sessions.Drop(lobbyName)
	}
	return gs
}

// StartGame authorizes and launches a game session for a lobby. The registry
// validates the host token and readiness and atomically moves the lobby to
// `starting`; a failure past that point reverts it.
func (gs *GameServer) StartGame(lobbyName, gameType, hostToken string) error {
	l, err := gs.LobbyStore.AuthorizeStart(lobbyName, hostToken)
	if err != nil {
		return err
	}

	l.Mu.Lock()
	players := l.PlayerNamesUnsafe()
	hostName := l.HostName
	l.Mu.Unlock()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var engine game.Engine
	switch gameType {
	case game.TypeTapGauntlet:
		engine = game.NewTapGauntlet(players, gs.ChallengePolicy, rng)
	case game.TypeBuzzerTrivia:
		engine = game.NewBuzzerTrivia(players, hostName, gs.Bank, rng)
	default:
		gs.LobbyStore.AbortStart(l)
		return fmt.Errorf("unknown game type %q: %w", gameType, lobby.ErrPreconditionFailed)
	}

	sess := game.NewSession(lobbyName, engine)
	sess.BroadcastFn = func(ev events.Event) { l.Broadcast(ev) }
	sess.SendToFn = func(playerName string, ev events.Event) { l.SendTo(playerName, ev) }
	sess.OnBegin = func() {
		gs.LobbyStore.SetGameState(l, lobby.StateInProgress)
	}
	sess.OnGameEnd = func() {
		gs.Sessions.Remove(lobbyName)
		gs.LobbyStore.FinishGame(l)
	}
	sess.JournalFn = func(kind string, record map[string]interface{}) {
		journal.Publish(journal.Record{
			LobbyName: lobbyName,
			GameType:  gameType,
			Kind:      kind,
			Data:      record,
		})
	}

	if !gs.Sessions.Add(sess) {
		gs.LobbyStore.AbortStart(l)
		return fmt.Errorf("session already active for %q: %w", lobbyName, lobby.ErrPreconditionFailed)
	}

	logrus.Infof("lobby %s: starting %s with %d players", lobbyName, gameType, len(players))
	sess.Start()
	return nil
}
