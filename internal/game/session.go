// internal/game/session.go
package game

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/events"
)

// TickInterval is how often a session's loop advances its engine.
const TickInterval = 100 * time.Millisecond

// Session drives one lobby's active game. It owns the tick loop and
// serializes every mutation, whether clock-driven or player-driven, under Mu.
// Events are computed under the lock and fanned out after release through the
// injected callbacks, so a slow consumer never extends the critical section.
type Session struct {
	LobbyName string
	Engine    Engine

	// BroadcastFn delivers an event to every connection in the lobby.
	BroadcastFn func(ev events.Event)

	// SendToFn delivers an event to a single player's connection.
	SendToFn func(playerName string, ev events.Event)

	// OnBegin is invoked once when the session leaves `starting`.
	OnBegin func()

	// OnGameEnd is invoked once after game_finished has been dispatched.
	OnGameEnd func()

	// JournalFn, if set, records actions and results for external consumers.
	// Failures there never touch game state.
	JournalFn func(kind string, record map[string]interface{})

	Mu       sync.Mutex
	finished bool

	stop     chan struct{}
	stopOnce sync.Once
	endOnce  sync.Once
}

// NewSession wires a session around an engine. Callbacks must be set before
// Start.
func NewSession(lobbyName string, engine Engine) *Session {
	return &Session{
		LobbyName: lobbyName,
		Engine:    engine,
		stop:      make(chan struct{}),
	}
}

// Start announces the game, begins the countdown, and launches the tick loop.
func (s *Session) Start() {
	s.Mu.Lock()
	out := Output{}
	out.broadcast(events.New(events.TypeGameStarted, map[string]interface{}{
		"game_type": s.Engine.GameType(),
		"countdown": 3,
	}))
	out.merge(s.Engine.Begin(time.Now()))
	s.Mu.Unlock()

	if s.OnBegin != nil {
		s.OnBegin()
	}
	s.dispatch(out)
	s.journal("game_started", map[string]interface{}{"game_type": s.Engine.GameType()})

	go s.run()
}

func (s *Session) run() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if s.step(now) {
				return
			}
		}
	}
}

// step advances the engine by one tick. Returns true once the session has
// finished; ticks arriving after that are no-ops.
func (s *Session) step(now time.Time) bool {
	s.Mu.Lock()
	if s.finished {
		s.Mu.Unlock()
		return true
	}
	out, done := s.Engine.Tick(now)
	var results map[string]interface{}
	if done {
		s.finished = true
		results = s.Engine.Results(now)
		out.broadcast(events.NewAt(events.TypeGameFinished, map[string]interface{}{"results": results}, now))
	}
	s.Mu.Unlock()

	s.dispatch(out)
	if done {
		s.finish(results)
	}
	return done
}

// HandleAction routes a player's game_action into the engine.
func (s *Session) HandleAction(playerName string, action events.Action, payload map[string]interface{}) {
	now := time.Now()

	s.Mu.Lock()
	if s.finished {
		s.Mu.Unlock()
		return
	}
	out, done := s.Engine.HandleAction(playerName, action, payload, now)
	var results map[string]interface{}
	if done {
		s.finished = true
		results = s.Engine.Results(now)
		out.broadcast(events.NewAt(events.TypeGameFinished, map[string]interface{}{"results": results}, now))
	}
	s.Mu.Unlock()

	s.dispatch(out)
	s.journal("game_action", map[string]interface{}{
		"player_name": playerName,
		"action":      string(action),
		"payload":     payload,
	})
	if done {
		s.finish(results)
	}
}

// Finished reports whether the session reached its terminal phase.
func (s *Session) Finished() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.finished
}

// Stop cancels the tick loop without emitting results (lobby teardown).
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.Mu.Lock()
	s.finished = true
	s.Mu.Unlock()
}

func (s *Session) finish(results map[string]interface{}) {
	s.stopOnce.Do(func() { close(s.stop) })
	s.journal("game_finished", map[string]interface{}{"results": results})
	s.endOnce.Do(func() {
		if s.OnGameEnd != nil {
			s.OnGameEnd()
		}
	})
	logrus.Infof("lobby %s: %s session finished", s.LobbyName, s.Engine.GameType())
}

func (s *Session) dispatch(out Output) {
	for _, ev := range out.Broadcast {
		if s.BroadcastFn != nil {
			s.BroadcastFn(ev)
		}
	}
	for _, d := range out.Directed {
		if s.SendToFn != nil {
			s.SendToFn(d.PlayerName, d.Event)
		}
	}
}

func (s *Session) journal(kind string, record map[string]interface{}) {
	if s.JournalFn != nil {
		s.JournalFn(kind, record)
	}
}
