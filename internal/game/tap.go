// internal/game/tap.go
package game

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/events"
)

// Tap Gauntlet timing. The active window and tap cap come straight from the
// game design: 10 seconds of tapping, at most 20 counted taps per second.
const (
	tapCountdownSeconds = 3
	tapDuration         = 10 * time.Second
	minTapInterval      = 50 * time.Millisecond
	tapScoreInterval    = 500 * time.Millisecond
	promptInterval      = 2 * time.Second
	promptWindow        = 2 * time.Second
	maxPromptTargets    = 2
)

// ChallengePolicy decides what happens to a player who misses an anti-cheat
// challenge.
type ChallengePolicy string

const (
	// PolicyFlag marks the player as suspect in the final results.
	PolicyFlag ChallengePolicy = "flag"
	// PolicyExclude zeroes the player's score and drops them to the bottom
	// of the ranking.
	PolicyExclude ChallengePolicy = "exclude"
	// PolicyIgnore records nothing.
	PolicyIgnore ChallengePolicy = "ignore"
)

// ParseChallengePolicy maps a config string onto a policy, defaulting to flag.
func ParseChallengePolicy(s string) ChallengePolicy {
	switch ChallengePolicy(s) {
	case PolicyExclude, PolicyIgnore:
		return ChallengePolicy(s)
	default:
		return PolicyFlag
	}
}

type tapPhase int

const (
	tapCountdown tapPhase = iota
	tapActive
	tapFinished
)

type tapChallenge struct {
	id       string
	issuedAt time.Time
}

// TapGauntlet is the reflex minigame: every player taps as fast as they can
// for a fixed window; highest count wins. Random liveness challenges catch
// automated tappers.
type TapGauntlet struct {
	players []string
	policy  ChallengePolicy
	rng     *rand.Rand

	phase           tapPhase
	countdownLeft   int
	nextCountdownAt time.Time

	activeStart  time.Time
	endsAt       time.Time
	nextScoreAt  time.Time
	nextPromptAt time.Time

	taps    map[string]int
	lastTap map[string]time.Time

	// pending holds at most one open challenge per player; a new challenge
	// for a player with one still open resolves the old one as missed.
	pending  map[string]*tapChallenge
	flagged  map[string]bool
	excluded map[string]bool
}

// NewTapGauntlet builds the engine for a fixed player set in join order.
// The rng is injected so tests can drive challenge targeting.
func NewTapGauntlet(players []string, policy ChallengePolicy, rng *rand.Rand) *TapGauntlet {
	taps := make(map[string]int, len(players))
	for _, p := range players {
		taps[p] = 0
	}
	return &TapGauntlet{
		players:  players,
		policy:   policy,
		rng:      rng,
		taps:     taps,
		lastTap:  make(map[string]time.Time, len(players)),
		pending:  make(map[string]*tapChallenge),
		flagged:  make(map[string]bool),
		excluded: make(map[string]bool),
	}
}

func (g *TapGauntlet) GameType() string { return TypeTapGauntlet }

func (g *TapGauntlet) Begin(now time.Time) Output {
	g.phase = tapCountdown
	g.countdownLeft = tapCountdownSeconds
	g.nextCountdownAt = now.Add(time.Second)

	var out Output
	out.broadcast(events.NewAt(events.TypeTick, map[string]interface{}{
		"countdown": g.countdownLeft,
		"message":   fmt.Sprintf("Starting in %d...", g.countdownLeft),
	}, now))
	return out
}

func (g *TapGauntlet) Tick(now time.Time) (Output, bool) {
	var out Output
	switch g.phase {
	case tapCountdown:
		g.tickCountdown(now, &out)
	case tapActive:
		g.tickActive(now, &out)
	}
	return out, g.phase == tapFinished
}

func (g *TapGauntlet) tickCountdown(now time.Time, out *Output) {
	if now.Before(g.nextCountdownAt) {
		return
	}
	g.countdownLeft--
	if g.countdownLeft > 0 {
		g.nextCountdownAt = g.nextCountdownAt.Add(time.Second)
		out.broadcast(events.NewAt(events.TypeTick, map[string]interface{}{
			"countdown": g.countdownLeft,
			"message":   fmt.Sprintf("Starting in %d...", g.countdownLeft),
		}, now))
		return
	}

	g.phase = tapActive
	g.activeStart = now
	g.endsAt = now.Add(tapDuration)
	g.nextScoreAt = now.Add(tapScoreInterval)
	g.nextPromptAt = now.Add(promptInterval)
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"state":          "in_progress",
		"message":        "TAP NOW!",
		"game_time":      0.0,
		"remaining_time": tapDuration.Seconds(),
	}, now))
}

func (g *TapGauntlet) tickActive(now time.Time, out *Output) {
	g.expireChallenges(now)

	if !now.Before(g.endsAt) {
		g.phase = tapFinished
		return
	}

	if !now.Before(g.nextPromptAt) {
		g.issueChallenges(now, out)
		g.nextPromptAt = g.nextPromptAt.Add(promptInterval)
	}

	if !now.Before(g.nextScoreAt) {
		elapsed := now.Sub(g.activeStart).Seconds()
		out.broadcast(events.NewAt(events.TypeTick, map[string]interface{}{
			"game_time":      elapsed,
			"remaining_time": g.endsAt.Sub(now).Seconds(),
			"scores":         g.scoresCopy(),
		}, now))
		g.nextScoreAt = g.nextScoreAt.Add(tapScoreInterval)
	}
}

// issueChallenges picks up to two random players and sends each a private
// liveness prompt they must answer within the response window.
func (g *TapGauntlet) issueChallenges(now time.Time, out *Output) {
	n := len(g.players)
	count := maxPromptTargets
	if n < count {
		count = n
	}
	for _, idx := range g.rng.Perm(n)[:count] {
		player := g.players[idx]
		if old, ok := g.pending[player]; ok {
			g.resolveMissed(player, old)
		}
		ch := &tapChallenge{id: uuid.NewString(), issuedAt: now}
		g.pending[player] = ch
		out.sendTo(player, events.NewAt(events.TypeGameState, map[string]interface{}{
			"anti_cheat_prompt": ch.id,
			"timestamp":         events.Stamp(now),
		}, now))
	}
}

func (g *TapGauntlet) expireChallenges(now time.Time) {
	for player, ch := range g.pending {
		if now.Sub(ch.issuedAt) >= promptWindow {
			delete(g.pending, player)
			g.resolveMissed(player, ch)
		}
	}
}

func (g *TapGauntlet) resolveMissed(player string, ch *tapChallenge) {
	logrus.Warnf("tap gauntlet: %s missed challenge %s", player, ch.id)
	switch g.policy {
	case PolicyFlag:
		g.flagged[player] = true
	case PolicyExclude:
		g.excluded[player] = true
	}
}

func (g *TapGauntlet) HandleAction(playerName string, action events.Action, payload map[string]interface{}, now time.Time) (Output, bool) {
	var out Output
	if g.phase != tapActive {
		return out, g.phase == tapFinished
	}

	switch action {
	case events.ActionTap:
		g.handleTap(playerName, now, &out)
	case events.ActionTapResponse:
		g.handleTapResponse(playerName, payload, now)
	default:
		out.sendTo(playerName, events.ErrorEvent(fmt.Sprintf("action %q not valid in tap gauntlet", action)))
	}
	return out, false
}

// handleTap counts one tap unless it violates the rate limit; rate-limited
// taps are dropped without feedback.
func (g *TapGauntlet) handleTap(playerName string, now time.Time, out *Output) {
	if _, ok := g.taps[playerName]; !ok {
		return
	}
	if last, ok := g.lastTap[playerName]; ok && now.Sub(last) < minTapInterval {
		return
	}
	g.taps[playerName]++
	g.lastTap[playerName] = now
	out.sendTo(playerName, events.NewAt(events.TypeGameState, map[string]interface{}{
		"tap_confirmed": true,
		"current_taps":  g.taps[playerName],
	}, now))
}

// handleTapResponse settles an open challenge. A stray or duplicate response
// with nothing pending is a no-op; a wrong prompt id against an open
// challenge counts as a miss.
func (g *TapGauntlet) handleTapResponse(playerName string, payload map[string]interface{}, now time.Time) {
	ch, ok := g.pending[playerName]
	if !ok {
		return
	}
	delete(g.pending, playerName)
	promptID, _ := payload["prompt_id"].(string)
	if ch.id != promptID {
		g.resolveMissed(playerName, ch)
	}
}

func (g *TapGauntlet) Results(now time.Time) map[string]interface{} {
	scores := make([]PlayerScore, 0, len(g.players))
	for _, p := range g.players {
		score := g.taps[p]
		if g.excluded[p] {
			score = 0
		}
		scores = append(scores, PlayerScore{PlayerName: p, Score: score})
	}
	scores = rankScores(scores)

	var winner interface{}
	if len(scores) > 0 {
		winner = scores[0].PlayerName
	}

	duration := tapDuration.Seconds()
	if !g.activeStart.IsZero() {
		duration = now.Sub(g.activeStart).Seconds()
	}
	results := map[string]interface{}{
		"game_type":        TypeTapGauntlet,
		"winner":           winner,
		"scores":           scores,
		"duration_seconds": duration,
	}
	if len(g.flagged) > 0 {
		results["flagged"] = sortedKeys(g.flagged)
	}
	if len(g.excluded) > 0 {
		results["excluded"] = sortedKeys(g.excluded)
	}
	return results
}

func (g *TapGauntlet) scoresCopy() map[string]int {
	cp := make(map[string]int, len(g.taps))
	for k, v := range g.taps {
		cp[k] = v
	}
	return cp
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
