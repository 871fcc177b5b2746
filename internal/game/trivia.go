// internal/game/trivia.go
package game

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/wfoster/partyhub/internal/events"
)

// Buzzer Trivia timing.
const (
	triviaCountdownSeconds = 3
	votingDuration         = 15 * time.Second
	categoryResultDuration = 3 * time.Second
	questionReadDuration   = 3 * time.Second
	buzzerDuration         = 10 * time.Second
	timeoutDuration        = 3 * time.Second
	nextQuestionPause      = 2 * time.Second
	offeredCategories      = 3
	maxRounds              = 3
)

// BuzzEntry records one accepted buzz. Position is the authoritative rank,
// assigned strictly by server-received timestamp ascending; ClientTime is
// whatever timestamp the client attached and is advisory only.
type BuzzEntry struct {
	Player     string    `json:"player"`
	ClientTime float64   `json:"time"`
	Position   int       `json:"position"`
	ServerTime time.Time `json:"-"`
}

// BuzzerTrivia is the host-judged quiz minigame: players vote on a category,
// buzz in on each question, and the host awards points manually.
type BuzzerTrivia struct {
	players  []string
	hostName string
	rng      *rand.Rand
	bank     QuestionBank

	phase           string
	round           int
	startAt         time.Time
	countdownLeft   int
	nextCountdownAt time.Time

	// phaseEndsAt drives every timed phase; host_judging has no deadline.
	phaseEndsAt   time.Time
	lastCountdown int

	offered  []string
	votes    map[string]string
	category string

	question     Question
	usedQuestion map[string]bool

	buzzes []BuzzEntry
	buzzed map[string]bool
	totals map[string]int
}

// NewBuzzerTrivia builds the engine for a fixed player set in join order.
func NewBuzzerTrivia(players []string, hostName string, bank QuestionBank, rng *rand.Rand) *BuzzerTrivia {
	totals := make(map[string]int, len(players))
	for _, p := range players {
		totals[p] = 0
	}
	return &BuzzerTrivia{
		players:      players,
		hostName:     hostName,
		rng:          rng,
		bank:         bank,
		round:        1,
		votes:        make(map[string]string),
		usedQuestion: make(map[string]bool),
		buzzed:       make(map[string]bool),
		totals:       totals,
	}
}

func (g *BuzzerTrivia) GameType() string { return TypeBuzzerTrivia }

func (g *BuzzerTrivia) Begin(now time.Time) Output {
	g.startAt = now
	g.offered = g.pickCategories(offeredCategories)
	g.phase = "countdown"
	g.countdownLeft = triviaCountdownSeconds
	g.nextCountdownAt = now.Add(time.Second)

	var out Output
	out.broadcast(events.NewAt(events.TypeTick, map[string]interface{}{
		"countdown": g.countdownLeft,
		"message":   fmt.Sprintf("Starting in %d...", g.countdownLeft),
	}, now))
	return out
}

// pickCategories samples n distinct categories in bank order.
func (g *BuzzerTrivia) pickCategories(n int) []string {
	all := g.bank.Categories()
	if n >= len(all) {
		return all
	}
	picked := make([]string, 0, n)
	for _, idx := range g.rng.Perm(len(all))[:n] {
		picked = append(picked, all[idx])
	}
	return picked
}

func (g *BuzzerTrivia) Tick(now time.Time) (Output, bool) {
	var out Output
	switch g.phase {
	case "countdown":
		g.tickCountdown(now, &out)
	case events.PhaseCategoryVoting:
		g.tickVoting(now, &out)
	case events.PhaseCategoryResult:
		if !now.Before(g.phaseEndsAt) {
			g.startQuestion(now, &out)
		}
	case events.PhaseBuzzerQuestion:
		if !now.Before(g.phaseEndsAt) {
			g.activateBuzzers(now, &out)
		}
	case events.PhaseBuzzerActive:
		g.tickBuzzers(now, &out)
	case events.PhaseTimeout:
		if !now.Before(g.phaseEndsAt) {
			g.advanceRound(now, &out)
		}
	case events.PhaseNextQuestion:
		if !now.Before(g.phaseEndsAt) {
			g.startQuestion(now, &out)
		}
	case events.PhaseHostJudging:
		// Waits for host actions; no deadline.
	}
	return out, g.phase == "finished"
}

func (g *BuzzerTrivia) tickCountdown(now time.Time, out *Output) {
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

	g.phase = events.PhaseCategoryVoting
	g.phaseEndsAt = now.Add(votingDuration)
	g.lastCountdown = int(votingDuration.Seconds())
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":      events.PhaseCategoryVoting,
		"categories": g.offered,
		"message":    "Vote for a trivia category!",
		"time_limit": int(votingDuration.Seconds()),
		"countdown":  int(votingDuration.Seconds()),
	}, now))
}

func (g *BuzzerTrivia) tickVoting(now time.Time, out *Output) {
	if !now.Before(g.phaseEndsAt) {
		g.selectCategory(now, out)
		return
	}
	remaining := int(g.phaseEndsAt.Sub(now).Seconds())
	if remaining != g.lastCountdown && remaining >= 0 {
		g.lastCountdown = remaining
		out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
			"phase":      events.PhaseVotingCountdown,
			"countdown":  remaining,
			"message":    fmt.Sprintf("Vote for a category! %ds remaining", remaining),
			"time_limit": int(votingDuration.Seconds()),
		}, now))
	}
}

// selectCategory tallies votes and picks the winner. Ties (including zero
// votes) break deterministically toward the earliest offered category.
func (g *BuzzerTrivia) selectCategory(now time.Time, out *Output) {
	counts := make(map[string]int)
	for _, cat := range g.votes {
		counts[cat]++
	}
	g.category = g.offered[0]
	best := counts[g.category]
	for _, cat := range g.offered[1:] {
		if counts[cat] > best {
			g.category = cat
			best = counts[cat]
		}
	}

	g.phase = events.PhaseCategoryResult
	g.phaseEndsAt = now.Add(categoryResultDuration)
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":             events.PhaseCategoryResult,
		"selected_category": g.category,
		"votes":             counts,
		"message":           fmt.Sprintf("Category chosen: %s", g.category),
	}, now))
}

// startQuestion draws a fresh question from the selected category and shows
// it for the read period. Buzz state resets completely.
func (g *BuzzerTrivia) startQuestion(now time.Time, out *Output) {
	g.question = g.drawQuestion()
	g.buzzes = nil
	g.buzzed = make(map[string]bool)

	g.phase = events.PhaseBuzzerQuestion
	g.phaseEndsAt = now.Add(questionReadDuration)
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":    events.PhaseBuzzerQuestion,
		"round":    g.round,
		"category": g.category,
		"question": g.question.Text,
		"message":  fmt.Sprintf("Round %d: Get ready to buzz in!", g.round),
	}, now))
}

// drawQuestion picks an unused question from the current category, recycling
// the pool once exhausted.
func (g *BuzzerTrivia) drawQuestion() Question {
	pool := g.bank[g.category]
	if len(pool) == 0 {
		return Question{Text: "No questions available", Answer: ""}
	}
	fresh := make([]Question, 0, len(pool))
	for _, q := range pool {
		if !g.usedQuestion[q.Text] {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		g.usedQuestion = make(map[string]bool)
		fresh = pool
	}
	q := fresh[g.rng.Intn(len(fresh))]
	g.usedQuestion[q.Text] = true
	return q
}

func (g *BuzzerTrivia) activateBuzzers(now time.Time, out *Output) {
	g.phase = events.PhaseBuzzerActive
	g.phaseEndsAt = now.Add(buzzerDuration)
	g.lastCountdown = int(buzzerDuration.Seconds())
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":             events.PhaseBuzzerActive,
		"message":           "BUZZERS ACTIVE! First to buzz gets to answer!",
		"countdown_seconds": int(buzzerDuration.Seconds()),
	}, now))
}

func (g *BuzzerTrivia) tickBuzzers(now time.Time, out *Output) {
	if !now.Before(g.phaseEndsAt) {
		if len(g.buzzes) > 0 {
			g.startJudging(now, out)
		} else {
			g.phase = events.PhaseTimeout
			g.phaseEndsAt = now.Add(timeoutDuration)
			out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
				"phase":          events.PhaseTimeout,
				"correct_answer": g.question.Answer,
				"message":        fmt.Sprintf("Time's up! The answer was: %s", g.question.Answer),
			}, now))
		}
		return
	}
	remaining := int(g.phaseEndsAt.Sub(now).Seconds())
	if remaining != g.lastCountdown && remaining >= 0 {
		g.lastCountdown = remaining
		out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
			"phase":        events.PhaseBuzzerCountdown,
			"countdown":    remaining,
			"message":      fmt.Sprintf("%ds left to buzz in!", remaining),
			"keep_buzzing": true,
		}, now))
	}
}

// startJudging freezes the buzz order, shows it to everyone, and reveals the
// answer plus host controls to the host alone.
func (g *BuzzerTrivia) startJudging(now time.Time, out *Output) {
	g.phase = events.PhaseHostJudging
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":                    events.PhaseHostJudging,
		"question":                 g.question.Text,
		"buzzers":                  g.buzzersCopy(),
		"message":                  "Waiting for host to award points...",
		"show_answer_to_host_only": true,
	}, now))
	out.sendTo(g.hostName, events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":          events.PhaseHostAnswer,
		"correct_answer": g.question.Answer,
		"host_controls":  true,
	}, now))
}

// advanceRound moves to the next round, or finishes past the last one.
func (g *BuzzerTrivia) advanceRound(now time.Time, out *Output) {
	g.round++
	if g.round > maxRounds {
		g.phase = "finished"
		return
	}
	g.phase = events.PhaseNextQuestion
	g.phaseEndsAt = now.Add(nextQuestionPause)
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":    events.PhaseNextQuestion,
		"round":    g.round,
		"category": g.category,
		"message":  fmt.Sprintf("Round %d coming up!", g.round),
	}, now))
}

func (g *BuzzerTrivia) HandleAction(playerName string, action events.Action, payload map[string]interface{}, now time.Time) (Output, bool) {
	var out Output
	switch action {
	case events.ActionVoteCategory:
		g.handleVote(playerName, payload, now, &out)
	case events.ActionBuzz:
		g.handleBuzz(playerName, payload, now, &out)
	case events.ActionAwardPoints:
		g.handleAwardPoints(playerName, payload, now, &out)
	case events.ActionNextQuestion:
		if g.requireHost(playerName, &out) && g.phase == events.PhaseHostJudging {
			g.advanceRound(now, &out)
		}
	case events.ActionEndGame:
		if g.requireHost(playerName, &out) {
			g.phase = "finished"
		}
	default:
		out.sendTo(playerName, events.ErrorEvent(fmt.Sprintf("action %q not valid in buzzer trivia", action)))
	}
	return out, g.phase == "finished"
}

func (g *BuzzerTrivia) requireHost(playerName string, out *Output) bool {
	if playerName != g.hostName {
		out.sendTo(playerName, events.ErrorEvent("host only action"))
		return false
	}
	return true
}

// handleVote records or replaces a vote for one of the offered categories.
func (g *BuzzerTrivia) handleVote(playerName string, payload map[string]interface{}, now time.Time, out *Output) {
	if g.phase != events.PhaseCategoryVoting {
		return
	}
	category, _ := payload["category"].(string)
	if !containsString(g.offered, category) {
		out.sendTo(playerName, events.ErrorEvent(fmt.Sprintf("category %q is not on the ballot", category)))
		return
	}
	g.votes[playerName] = category
	out.sendTo(playerName, events.NewAt(events.TypeGameState, map[string]interface{}{
		"category_vote_confirmed": true,
		"voted_category":          category,
	}, now))
}

// handleBuzz accepts at most one buzz per player per question, ranked by
// server-received timestamp.
func (g *BuzzerTrivia) handleBuzz(playerName string, payload map[string]interface{}, now time.Time, out *Output) {
	if g.phase != events.PhaseBuzzerActive {
		return
	}
	if g.buzzed[playerName] {
		return
	}
	if _, member := g.totals[playerName]; !member {
		return
	}
	clientTime, ok := payload["timestamp"].(float64)
	if !ok {
		clientTime = events.Stamp(now)
	}
	g.buzzed[playerName] = true

	// now is the receive time, captured before the session lock was taken.
	// A buzz can reach the engine after a later-received one when goroutines
	// contend for the lock, so insert by ServerTime rather than appending.
	idx := sort.Search(len(g.buzzes), func(i int) bool {
		return g.buzzes[i].ServerTime.After(now)
	})
	g.buzzes = append(g.buzzes, BuzzEntry{})
	copy(g.buzzes[idx+1:], g.buzzes[idx:])
	g.buzzes[idx] = BuzzEntry{Player: playerName, ClientTime: clientTime, ServerTime: now}
	for i := range g.buzzes {
		g.buzzes[i].Position = i + 1
	}

	out.sendTo(playerName, events.NewAt(events.TypeGameState, map[string]interface{}{
		"buzz_confirmed": true,
	}, now))
	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":         events.PhaseLiveBuzzers,
		"buzzer_player": playerName,
		"buzzers":       g.buzzersCopy(),
		"message":       fmt.Sprintf("%s buzzed in! (#%d)", playerName, idx+1),
		"keep_buzzing":  true,
	}, now))
}

// handleAwardPoints adds host-chosen points to a player's running total.
func (g *BuzzerTrivia) handleAwardPoints(playerName string, payload map[string]interface{}, now time.Time, out *Output) {
	if !g.requireHost(playerName, out) {
		return
	}
	if g.phase != events.PhaseHostJudging {
		return
	}
	awarded, _ := payload["player_name"].(string)
	if _, member := g.totals[awarded]; !member {
		out.sendTo(playerName, events.ErrorEvent(fmt.Sprintf("player %q is not in this game", awarded)))
		return
	}
	points := 1
	if v, ok := payload["points"].(float64); ok {
		points = int(v)
	}
	if points < 0 {
		out.sendTo(playerName, events.ErrorEvent("points must be non-negative"))
		return
	}
	g.totals[awarded] += points

	out.broadcast(events.NewAt(events.TypeGameState, map[string]interface{}{
		"phase":          events.PhasePointsAwarded,
		"awarded_player": awarded,
		"points":         points,
		"total_scores":   g.totalsCopy(),
		"message":        fmt.Sprintf("%s gets %d point(s)!", awarded, points),
	}, now))
}

func (g *BuzzerTrivia) Results(now time.Time) map[string]interface{} {
	scores := make([]PlayerScore, 0, len(g.players))
	for _, p := range g.players {
		scores = append(scores, PlayerScore{PlayerName: p, Score: g.totals[p]})
	}
	scores = rankScores(scores)

	var winner interface{}
	if len(scores) > 0 && scores[0].Score > 0 {
		winner = scores[0].PlayerName
	}

	roundsPlayed := g.round
	if roundsPlayed > maxRounds {
		roundsPlayed = maxRounds
	}
	return map[string]interface{}{
		"game_type":        TypeBuzzerTrivia,
		"winner":           winner,
		"scores":           scores,
		"total_scores":     g.totalsCopy(),
		"rounds_played":    roundsPlayed,
		"duration_seconds": now.Sub(g.startAt).Seconds(),
	}
}

func (g *BuzzerTrivia) buzzersCopy() []BuzzEntry {
	cp := make([]BuzzEntry, len(g.buzzes))
	copy(cp, g.buzzes)
	return cp
}

func (g *BuzzerTrivia) totalsCopy() map[string]int {
	cp := make(map[string]int, len(g.totals))
	for k, v := range g.totals {
		cp[k] = v
	}
	return cp
}
