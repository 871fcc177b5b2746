// internal/game/engine.go
package game

import (
	"sort"
	"time"

	"github.com/wfoster/partyhub/internal/events"
)

// Game type identifiers accepted by start_game.
const (
	TypeTapGauntlet  = "tap_gauntlet"
	TypeBuzzerTrivia = "buzzer_trivia"
)

// Directed is an event addressed to exactly one player. Host-only material
// (correct answers, host controls) travels this way and never via broadcast.
type Directed struct {
	PlayerName string
	Event      events.Event
}

// Output is the set of events one engine step produced. The session fans it
// out after releasing its lock.
type Output struct {
	Broadcast []events.Event
	Directed  []Directed
}

func (o *Output) broadcast(ev events.Event) {
	o.Broadcast = append(o.Broadcast, ev)
}

func (o *Output) sendTo(player string, ev events.Event) {
	o.Directed = append(o.Directed, Directed{PlayerName: player, Event: ev})
}

func (o *Output) merge(other Output) {
	o.Broadcast = append(o.Broadcast, other.Broadcast...)
	o.Directed = append(o.Directed, other.Directed...)
}

// Engine is one minigame's rules. The session serializes every call under its
// mutex; engines hold plain state and never spawn goroutines or block.
//
// Tick and HandleAction report done=true when the engine reached its terminal
// phase; the session then emits game_finished with Results and tears down.
type Engine interface {
	GameType() string

	// Begin enters the countdown phase.
	Begin(now time.Time) Output

	// Tick advances time-based transitions. Called every 100ms.
	Tick(now time.Time) (Output, bool)

	// HandleAction applies one player action from a game_action message.
	HandleAction(playerName string, action events.Action, payload map[string]interface{}, now time.Time) (Output, bool)

	// Results builds the final results payload for game_finished.
	Results(now time.Time) map[string]interface{}
}

// PlayerScore is one row of a final ranking.
type PlayerScore struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	Position   int    `json:"position"`
}

// rankScores orders scores descending and assigns 1-based positions. The sort
// is stable, so callers passing players in join order get join-order
// tiebreaks.
func rankScores(scores []PlayerScore) []PlayerScore {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	for i := range scores {
		scores[i].Position = i + 1
	}
	return scores
}
