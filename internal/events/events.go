// internal/events/events.go
package events

import "time"

// Type identifies a websocket message in either direction.
type Type string

// Client -> server message types.
const (
	TypePlayerReady   Type = "player_ready"
	TypePlayerUnready Type = "player_unready"
	TypeChatMessage   Type = "chat_message"
	TypeGameAction    Type = "game_action"
	TypePing          Type = "ping"
)

// Server -> client message types.
const (
	TypeLobbyUpdated Type = "lobby_updated"
	TypePlayerJoined Type = "player_joined"
	TypePlayerLeft   Type = "player_left"
	TypeGameStarted  Type = "game_started"
	TypeGameState    Type = "game_state"
	TypeTick         Type = "tick"
	TypeGameFinished Type = "game_finished"
	TypePong         Type = "pong"
	TypeError        Type = "error"
)

// Action is the discriminator carried in a game_action payload.
type Action string

const (
	ActionTap          Action = "tap"
	ActionTapResponse  Action = "tap_response"
	ActionVoteCategory Action = "vote_category"
	ActionBuzz         Action = "buzz"
	ActionAwardPoints  Action = "award_points"
	ActionNextQuestion Action = "next_question"
	ActionEndGame      Action = "end_game"
)

// Game state phases broadcast inside game_state payloads.
const (
	PhaseCategoryVoting  = "category_voting"
	PhaseVotingCountdown = "voting_countdown"
	PhaseCategoryResult  = "category_result"
	PhaseBuzzerQuestion  = "buzzer_question"
	PhaseBuzzerActive    = "buzzer_active"
	PhaseBuzzerCountdown = "buzzer_countdown"
	PhaseLiveBuzzers     = "live_buzzers"
	PhaseHostJudging     = "host_judging"
	PhaseHostAnswer      = "host_answer"
	PhasePointsAwarded   = "points_awarded"
	PhaseNextQuestion    = "next_question"
	PhaseTimeout         = "timeout"
)

// Event is the wire envelope shared by both directions.
//
// Timestamp is unix seconds with fractional precision; client-supplied
// timestamps are advisory only — server arrival order is authoritative
// everywhere ordering matters.
type Event struct {
	Type      Type                   `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp float64                `json:"timestamp"`
}

// New builds an event stamped with the current time.
func New(t Type, payload map[string]interface{}) Event {
	return Event{Type: t, Payload: payload, Timestamp: Stamp(time.Now())}
}

// NewAt builds an event stamped with an explicit time, for callers that
// already hold an authoritative clock reading.
func NewAt(t Type, payload map[string]interface{}, at time.Time) Event {
	return Event{Type: t, Payload: payload, Timestamp: Stamp(at)}
}

// Stamp converts a time to the envelope's unix-seconds representation.
func Stamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ErrorEvent is a convenience for protocol errors sent to a single offending
// connection.
func ErrorEvent(msg string) Event {
	return New(TypeError, map[string]interface{}{"error": msg})
}
