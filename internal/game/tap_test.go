// internal/game/tap_test.go
package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfoster/partyhub/internal/events"
)

func newTapGame(policy ChallengePolicy, players ...string) (*TapGauntlet, time.Time) {
	rng := rand.New(rand.NewSource(1))
	g := NewTapGauntlet(players, policy, rng)
	base := time.Unix(1_700_000_000, 0)
	g.Begin(base)
	return g, base
}

// runCountdown drives the engine through the 3s countdown and returns the
// moment the active window opened.
func runCountdown(t *testing.T, g *TapGauntlet, base time.Time) time.Time {
	t.Helper()
	for i := 1; i <= 3; i++ {
		out, done := g.Tick(base.Add(time.Duration(i) * time.Second))
		require.False(t, done)
		require.NotEmpty(t, out.Broadcast)
	}
	require.Equal(t, tapActive, g.phase)
	return base.Add(3 * time.Second)
}

func TestTapCountdownEntersActiveWindow(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")

	out, done := g.Tick(base.Add(time.Second))
	require.False(t, done)
	require.Len(t, out.Broadcast, 1)
	assert.Equal(t, events.TypeTick, out.Broadcast[0].Type)
	assert.Equal(t, 2, out.Broadcast[0].Payload["countdown"])

	g.Tick(base.Add(2 * time.Second))
	out, done = g.Tick(base.Add(3 * time.Second))
	require.False(t, done)
	require.Len(t, out.Broadcast, 1)
	assert.Equal(t, events.TypeGameState, out.Broadcast[0].Type)
	assert.Equal(t, "in_progress", out.Broadcast[0].Payload["state"])
}

func TestTapCountsAndConfirmsPrivately(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	out, done := g.HandleAction("alice", events.ActionTap, nil, start.Add(100*time.Millisecond))
	require.False(t, done)
	require.Empty(t, out.Broadcast)
	require.Len(t, out.Directed, 1)
	assert.Equal(t, "alice", out.Directed[0].PlayerName)
	assert.Equal(t, true, out.Directed[0].Event.Payload["tap_confirmed"])
	assert.Equal(t, 1, out.Directed[0].Event.Payload["current_taps"])
	assert.Equal(t, 1, g.taps["alice"])
	assert.Equal(t, 0, g.taps["bob"])
}

func TestTapRateLimitDropsSilently(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	g.HandleAction("alice", events.ActionTap, nil, start.Add(100*time.Millisecond))
	out, _ := g.HandleAction("alice", events.ActionTap, nil, start.Add(120*time.Millisecond))
	assert.Empty(t, out.Directed, "rate-limited tap must produce no feedback")
	assert.Equal(t, 1, g.taps["alice"])

	g.HandleAction("alice", events.ActionTap, nil, start.Add(160*time.Millisecond))
	assert.Equal(t, 2, g.taps["alice"])
}

func TestTapBeforeActiveWindowIgnored(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")

	out, done := g.HandleAction("alice", events.ActionTap, nil, base.Add(500*time.Millisecond))
	require.False(t, done)
	assert.Empty(t, out.Broadcast)
	assert.Empty(t, out.Directed)
	assert.Equal(t, 0, g.taps["alice"])
}

func TestTapChallengeRoundTrip(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	out, _ := g.Tick(start.Add(2 * time.Second))
	var prompts []Directed
	for _, d := range out.Directed {
		if _, ok := d.Event.Payload["anti_cheat_prompt"]; ok {
			prompts = append(prompts, d)
		}
	}
	require.Len(t, prompts, 2, "both players should be challenged")

	for _, p := range prompts {
		promptID := p.Event.Payload["anti_cheat_prompt"].(string)
		g.HandleAction(p.PlayerName, events.ActionTapResponse,
			map[string]interface{}{"prompt_id": promptID}, start.Add(2500*time.Millisecond))
	}

	g.Tick(start.Add(5 * time.Second))
	assert.Empty(t, g.flagged, "answered challenges must not flag anyone")
}

func TestTapChallengeMissFlagsPlayer(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	out, _ := g.Tick(start.Add(2 * time.Second))
	require.NotEmpty(t, out.Directed)

	// Nobody answers; the window lapses on a later tick.
	g.Tick(start.Add(4*time.Second + 100*time.Millisecond))
	assert.Len(t, g.flagged, 2)

	results := g.Results(start.Add(10 * time.Second))
	assert.Len(t, results["flagged"], 2)
}

func TestTapChallengeResponseEdgeCases(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	out, _ := g.Tick(start.Add(2 * time.Second))
	var prompts []Directed
	for _, d := range out.Directed {
		if _, ok := d.Event.Payload["anti_cheat_prompt"]; ok {
			prompts = append(prompts, d)
		}
	}
	require.Len(t, prompts, 2)

	// A double-sent answer must not count against an honest player.
	first := prompts[0]
	payload := map[string]interface{}{"prompt_id": first.Event.Payload["anti_cheat_prompt"].(string)}
	g.HandleAction(first.PlayerName, events.ActionTapResponse, payload, start.Add(2200*time.Millisecond))
	g.HandleAction(first.PlayerName, events.ActionTapResponse, payload, start.Add(2300*time.Millisecond))
	assert.False(t, g.flagged[first.PlayerName])

	// A wrong prompt id against an open challenge is a miss.
	second := prompts[1]
	g.HandleAction(second.PlayerName, events.ActionTapResponse,
		map[string]interface{}{"prompt_id": "bogus"}, start.Add(2200*time.Millisecond))
	assert.True(t, g.flagged[second.PlayerName])
}

func TestTapChallengeExcludePolicyZeroesScore(t *testing.T) {
	g, base := newTapGame(PolicyExclude, "alice", "bob")
	start := runCountdown(t, g, base)

	g.HandleAction("alice", events.ActionTap, nil, start.Add(100*time.Millisecond))
	g.Tick(start.Add(2 * time.Second))
	g.Tick(start.Add(4*time.Second + 100*time.Millisecond))
	require.NotEmpty(t, g.excluded)

	results := g.Results(start.Add(10 * time.Second))
	scores := results["scores"].([]PlayerScore)
	for _, s := range scores {
		if g.excluded[s.PlayerName] {
			assert.Equal(t, 0, s.Score)
		}
	}
}

func TestTapGameEndsAfterDuration(t *testing.T) {
	g, base := newTapGame(PolicyFlag, "alice", "bob")
	start := runCountdown(t, g, base)

	_, done := g.Tick(start.Add(9 * time.Second))
	require.False(t, done)
	_, done = g.Tick(start.Add(10 * time.Second))
	require.True(t, done)

	// Actions after the end are no-ops.
	out, done := g.HandleAction("alice", events.ActionTap, nil, start.Add(11*time.Second))
	assert.True(t, done)
	assert.Empty(t, out.Directed)
	assert.Equal(t, 0, g.taps["alice"])
}

func TestTapTwoPlayerMatch(t *testing.T) {
	g, base := newTapGame(PolicyIgnore, "Alice", "Bob")
	start := runCountdown(t, g, base)

	for i := 0; i < 5; i++ {
		g.HandleAction("Alice", events.ActionTap, nil, start.Add(time.Duration(i+1)*100*time.Millisecond))
	}
	for i := 0; i < 3; i++ {
		g.HandleAction("Bob", events.ActionTap, nil, start.Add(time.Duration(i+1)*100*time.Millisecond))
	}

	_, done := g.Tick(start.Add(tapDuration))
	require.True(t, done)

	results := g.Results(start.Add(tapDuration))
	scores := results["scores"].([]PlayerScore)
	require.Len(t, scores, 2)
	assert.Equal(t, PlayerScore{PlayerName: "Alice", Score: 5, Position: 1}, scores[0])
	assert.Equal(t, PlayerScore{PlayerName: "Bob", Score: 3, Position: 2}, scores[1])
	assert.Equal(t, "Alice", results["winner"])
}

func TestTapRankingDescWithJoinOrderTies(t *testing.T) {
	g, _ := newTapGame(PolicyFlag, "alice", "bob", "carol")
	g.taps["alice"] = 5
	g.taps["bob"] = 9
	g.taps["carol"] = 5

	results := g.Results(time.Unix(1_700_000_020, 0))
	scores := results["scores"].([]PlayerScore)
	require.Len(t, scores, 3)
	assert.Equal(t, "bob", scores[0].PlayerName)
	assert.Equal(t, 1, scores[0].Position)
	assert.Equal(t, "alice", scores[1].PlayerName, "join order breaks the tie")
	assert.Equal(t, "carol", scores[2].PlayerName)
	assert.Equal(t, "bob", results["winner"])
}
