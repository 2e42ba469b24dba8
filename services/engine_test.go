package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/mamad2002github/GuessWord/config"
	"github.com/mamad2002github/GuessWord/models"
)

func testEngine() *Engine {
	return NewEngine(config.LoadGameConfig(), rand.New(rand.NewSource(1)))
}

// activeTurn builds an in-progress game on the word CAKE with alice (id 1)
// to move and both budgets full.
func activeTurn(now time.Time) *Turn {
	p1 := &models.User{ID: 1, Username: "alice", Coins: 10}
	p2 := &models.User{ID: 2, Username: "bob", Coins: 10}
	p2ID := p2.ID
	current := p1.ID

	game := &models.Game{
		ID:         "game-1",
		Player1ID:  p1.ID,
		Player2ID:  &p2ID,
		Difficulty: models.DifficultyEasy,
		Status:     models.StatusActive,
	}
	state := &models.GameState{
		GameID:          game.ID,
		CurrentPlayerID: &current,
		GuessedLetters:  models.GuessLog{},
		RevealedLetters: models.PlayerIntsMap{},
		HintsUsed:       models.PlayerIntsMap{},
		Player1Time:     300,
		Player2Time:     300,
		LastTurnTime:    &now,
	}
	word := &models.Word{
		ID: 1, Text: "cake", Difficulty: models.DifficultyEasy,
		Hint1: "Something you eat", Hint2: "Served at birthdays", Hint3: "Often has candles on top",
	}

	return &Turn{Game: game, State: state, Word: word, Player1: p1, Player2: p2, Actor: p1, Now: now}
}

func guess(t *testing.T, e *Engine, turn *Turn, actor *models.User, letter string, position int) *Outcome {
	t.Helper()
	turn.Actor = actor
	out, err := e.Apply(turn, Action{Kind: ActionGuessLetter, Letter: letter, Position: position})
	if err != nil {
		t.Fatalf("guess %q at %d by %s: %v", letter, position, actor.Username, err)
	}
	return out
}

func TestGuessLetterScoringAndTurnSwitch(t *testing.T) {
	e := testEngine()
	now := time.Now()
	turn := activeTurn(now)

	out := guess(t, e, turn, turn.Player1, "C", 0)
	if out.Event != "letter_guessed" {
		t.Fatalf("event = %q, want letter_guessed", out.Event)
	}
	if turn.State.Player1Score != 20 {
		t.Errorf("player1 score = %d, want 20", turn.State.Player1Score)
	}
	if turn.Player1.Coins != 11 {
		t.Errorf("player1 coins = %d, want 11 (correct guess earns a coin)", turn.Player1.Coins)
	}
	if *turn.State.CurrentPlayerID != 2 {
		t.Errorf("current player = %d, want 2", *turn.State.CurrentPlayerID)
	}

	guess(t, e, turn, turn.Player2, "X", 1)
	if turn.State.Player2Score != -20 {
		t.Errorf("player2 score = %d, want -20", turn.State.Player2Score)
	}
	if turn.Player2.Coins != 10 {
		t.Errorf("player2 coins = %d, want 10 (no coin on wrong guess)", turn.Player2.Coins)
	}
	if *turn.State.CurrentPlayerID != 1 {
		t.Errorf("current player = %d, want 1", *turn.State.CurrentPlayerID)
	}
	if len(turn.State.GuessedLetters) != 2 {
		t.Errorf("guess log has %d entries, want 2", len(turn.State.GuessedLetters))
	}
}

func TestGuessLetterCaseInsensitive(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	guess(t, e, turn, turn.Player1, "c", 0)
	if !turn.State.GuessedLetters[0].Correct {
		t.Error("lowercase guess against uppercased word should be correct")
	}
}

func TestGuessLetterValidation(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name     string
		letter   string
		position int
		wantErr  error
	}{
		{"empty letter", "", 0, ErrInvalidInput},
		{"multi-rune", "ab", 0, ErrInvalidInput},
		{"digit", "7", 0, ErrInvalidInput},
		{"negative position", "c", -1, ErrInvalidInput},
		{"position past end", "c", 4, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := activeTurn(time.Now())
			_, err := e.Apply(turn, Action{Kind: ActionGuessLetter, Letter: tt.letter, Position: tt.position})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if len(turn.State.GuessedLetters) != 0 || turn.State.Player1Score != 0 {
				t.Error("rejected guess must not mutate state")
			}
		})
	}
}

func TestGuessLetterOutOfTurn(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Actor = turn.Player2

	_, err := e.Apply(turn, Action{Kind: ActionGuessLetter, Letter: "c", Position: 0})
	if !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("err = %v, want ErrInvalidTurn", err)
	}
}

func TestRepeatedGuessSamePositionScoresAgain(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	guess(t, e, turn, turn.Player1, "C", 0)
	guess(t, e, turn, turn.Player2, "C", 0)

	if len(turn.State.GuessedLetters) != 2 {
		t.Fatalf("guess log has %d entries, want 2 (later guesses do not overwrite)", len(turn.State.GuessedLetters))
	}
	if turn.State.Player2Score != 20 {
		t.Errorf("player2 score = %d, want 20 (duplicate correct guess still scores)", turn.State.Player2Score)
	}
	if got := len(turn.State.GuessedLetters.CorrectPositions()); got != 1 {
		t.Errorf("distinct correct positions = %d, want 1", got)
	}
}

func TestCorrectPositionsMonotonicAndBounded(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	moves := []struct {
		letter   string
		position int
	}{
		{"C", 0}, {"X", 1}, {"A", 1}, {"C", 0}, {"K", 2}, {"Z", 3},
	}
	prev := 0
	actors := []*models.User{turn.Player1, turn.Player2}
	for i, m := range moves {
		guess(t, e, turn, actors[i%2], m.letter, m.position)
		got := len(turn.State.GuessedLetters.CorrectPositions())
		if got < prev {
			t.Fatalf("distinct correct positions decreased: %d -> %d", prev, got)
		}
		if got > len([]rune(turn.Word.Text)) {
			t.Fatalf("distinct correct positions %d exceeds word length", got)
		}
		prev = got
	}
}

func TestAllLettersGuessedEndsGame(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	guess(t, e, turn, turn.Player1, "C", 0) // alice +20
	guess(t, e, turn, turn.Player2, "X", 1) // bob -20
	guess(t, e, turn, turn.Player1, "A", 1) // alice +20
	guess(t, e, turn, turn.Player2, "K", 2) // bob +20
	turn.Actor = turn.Player1
	out, err := e.Apply(turn, Action{Kind: ActionGuessLetter, Letter: "E", Position: 3})
	if err != nil {
		t.Fatal(err)
	}

	if !out.Ended || out.EndReason != "all_letters_guessed" {
		t.Fatalf("outcome = %+v, want ended with all_letters_guessed", out)
	}
	if turn.Game.Status != models.StatusFinished {
		t.Errorf("status = %s, want finished", turn.Game.Status)
	}
	if out.WinnerID == nil || *out.WinnerID != 1 {
		t.Errorf("winner = %v, want alice (higher score)", out.WinnerID)
	}
	if turn.Player1.XP != 50 {
		t.Errorf("winner xp = %d, want 50", turn.Player1.XP)
	}
	if turn.Player2.XP != 0 {
		t.Errorf("loser xp = %d, want 0", turn.Player2.XP)
	}
	if len(out.Histories) != 2 {
		t.Fatalf("histories = %d, want 2", len(out.Histories))
	}
	if out.Histories[0].Result != models.ResultWon || out.Histories[1].Result != models.ResultLost {
		t.Errorf("history results = %s/%s, want won/lost", out.Histories[0].Result, out.Histories[1].Result)
	}
}

func TestGuessWordCorrect(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	out, err := e.Apply(turn, Action{Kind: ActionGuessWord, Word: "Cake"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Ended || out.EndReason != "word_guessed" {
		t.Fatalf("outcome = %+v, want ended with word_guessed", out)
	}
	if out.WinnerID == nil || *out.WinnerID != 1 {
		t.Errorf("winner = %v, want alice", out.WinnerID)
	}
	if turn.State.Player1Score != 100 {
		t.Errorf("alice score = %d, want 100", turn.State.Player1Score)
	}
}

func TestGuessWordWrongHandsWinToOpponent(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.State.Player1Score = 200 // running score does not matter

	out, err := e.Apply(turn, Action{Kind: ActionGuessWord, Word: "BAKE"})
	if err != nil {
		t.Fatal(err)
	}
	if out.WinnerID == nil || *out.WinnerID != 2 {
		t.Fatalf("winner = %v, want bob regardless of running scores", out.WinnerID)
	}
	if turn.State.Player2Score != 50 {
		t.Errorf("bob score = %d, want 50", turn.State.Player2Score)
	}
	if turn.Player2.XP != 50 {
		t.Errorf("bob xp = %d, want 50", turn.Player2.XP)
	}
}

func TestHintTiersSequential(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	wantHints := []string{"Something you eat", "Served at birthdays", "Often has candles on top"}
	for i, want := range wantHints {
		out, err := e.Apply(turn, Action{Kind: ActionRequestHint})
		if err != nil {
			t.Fatalf("hint %d: %v", i+1, err)
		}
		if out.Personal == nil {
			t.Fatalf("hint %d: no personal payload", i+1)
		}
		if got := out.Personal.Data["hint"]; got != want {
			t.Errorf("hint %d = %q, want %q", i+1, got, want)
		}
		if got := out.Personal.Data["tier"]; got != i+1 {
			t.Errorf("tier = %v, want %d", got, i+1)
		}
	}

	if _, err := e.Apply(turn, Action{Kind: ActionRequestHint}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("fourth hint: err = %v, want ErrInvalidStateTransition", err)
	}

	used := turn.State.HintsUsed.ForPlayer(1)
	if len(used) != 3 || used[0] != 1 || used[1] != 2 || used[2] != 3 {
		t.Errorf("hints used = %v, want [1 2 3]", used)
	}
	if turn.Player1.Coins != 7 {
		t.Errorf("coins = %d, want 7 after three hints", turn.Player1.Coins)
	}
	// Hints never touch the turn.
	if *turn.State.CurrentPlayerID != 1 {
		t.Errorf("current player changed to %d after hints", *turn.State.CurrentPlayerID)
	}
}

func TestHintRejectedWithoutCoins(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Player1.Coins = 0

	_, err := e.Apply(turn, Action{Kind: ActionRequestHint})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if turn.Player1.Coins != 0 {
		t.Errorf("coins = %d, rejected hint must not mutate", turn.Player1.Coins)
	}
	if len(turn.State.HintsUsed.ForPlayer(1)) != 0 {
		t.Error("rejected hint recorded a tier")
	}
}

func TestRevealLetterPrivateAndEligible(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	// Position 0 is publicly solved, positions 1 and 2 already revealed to
	// alice. Only position 3 is eligible.
	turn.State.GuessedLetters = models.GuessLog{{Letter: "C", Position: 0, Correct: true, PlayerID: 2}}
	turn.State.RevealedLetters.Append(1, 1)
	turn.State.RevealedLetters.Append(1, 2)

	out, err := e.Apply(turn, Action{Kind: ActionRevealLetter})
	if err != nil {
		t.Fatal(err)
	}
	if out.Personal == nil {
		t.Fatal("reveal must produce a personal payload")
	}
	if got := out.Personal.Data["position"]; got != 3 {
		t.Errorf("revealed position = %v, want 3 (only eligible)", got)
	}
	if got := out.Personal.Data["letter"]; got != "E" {
		t.Errorf("revealed letter = %v, want E", got)
	}
	if turn.Player1.Coins != 9 {
		t.Errorf("coins = %d, want 9", turn.Player1.Coins)
	}

	// Now everything is solved or revealed for alice.
	if _, err := e.Apply(turn, Action{Kind: ActionRevealLetter}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput when nothing is revealable", err)
	}
	if turn.Player1.Coins != 9 {
		t.Errorf("coins = %d, rejected reveal must not charge", turn.Player1.Coins)
	}
}

func TestRevealRejectedWithoutCoins(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Player1.Coins = 0

	_, err := e.Apply(turn, Action{Kind: ActionRevealLetter})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestJoinAssignsSecondPlayer(t *testing.T) {
	e := testEngine()
	now := time.Now()
	turn := activeTurn(now)
	turn.Game.Status = models.StatusPending
	turn.Game.Player2ID = nil
	turn.Player2 = nil
	turn.State.CurrentPlayerID = nil
	turn.State.LastTurnTime = nil
	joiner := &models.User{ID: 2, Username: "bob", Coins: 10}
	turn.Actor = joiner

	out, err := e.Apply(turn, Action{Kind: ActionJoin})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "player_joined" {
		t.Errorf("event = %q, want player_joined", out.Event)
	}
	if turn.Game.Status != models.StatusActive {
		t.Errorf("status = %s, want active", turn.Game.Status)
	}
	if turn.Game.Player2ID == nil || *turn.Game.Player2ID != 2 {
		t.Errorf("player2 = %v, want 2", turn.Game.Player2ID)
	}
	if turn.State.CurrentPlayerID == nil {
		t.Fatal("no current player after join")
	}
	if got := *turn.State.CurrentPlayerID; got != 1 && got != 2 {
		t.Errorf("current player = %d, want one of the two players", got)
	}
	if turn.State.LastTurnTime == nil || !turn.State.LastTurnTime.Equal(now) {
		t.Errorf("lastTurnTime = %v, want %v", turn.State.LastTurnTime, now)
	}
}

func TestJoinOwnGameForbidden(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Game.Status = models.StatusPending
	turn.Game.Player2ID = nil
	turn.Player2 = nil

	_, err := e.Apply(turn, Action{Kind: ActionJoin})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestJoinFullGameRejected(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Actor = &models.User{ID: 3, Username: "carol"}

	_, err := e.Apply(turn, Action{Kind: ActionJoin})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestCheckTimeoutForcesSingleSwitch(t *testing.T) {
	e := testEngine()
	now := time.Now()
	turn := activeTurn(now)
	turn.Now = now.Add(31 * time.Second)
	turn.Actor = nil

	out, err := e.Apply(turn, Action{Kind: ActionCheckTimeout})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "turn_timeout" {
		t.Fatalf("event = %q, want turn_timeout", out.Event)
	}
	if *turn.State.CurrentPlayerID != 2 {
		t.Errorf("current player = %d, want 2", *turn.State.CurrentPlayerID)
	}
	if turn.State.Player1Time != 300-31 {
		t.Errorf("player1 time = %d, want 269 (31s charged on forced switch)", turn.State.Player1Time)
	}
	if turn.State.Player1Score != 0 {
		t.Errorf("score changed on timeout: %d", turn.State.Player1Score)
	}

	// Immediately again: 0s elapsed since the reset, must be a no-op.
	out, err = e.Apply(turn, Action{Kind: ActionCheckTimeout})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "" {
		t.Fatalf("second check event = %q, want no-op", out.Event)
	}
	if *turn.State.CurrentPlayerID != 2 {
		t.Errorf("current player switched again: %d", *turn.State.CurrentPlayerID)
	}
}

func TestCheckTimeoutEndsGameOnExhaustedBudget(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.State.Player2Time = 0
	turn.State.Player1Time = 120
	turn.Actor = nil

	out, err := e.Apply(turn, Action{Kind: ActionCheckTimeout})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Ended || out.EndReason != "player_time_up" {
		t.Fatalf("outcome = %+v, want ended with player_time_up", out)
	}
	if out.WinnerID == nil || *out.WinnerID != 1 {
		t.Errorf("winner = %v, want alice", out.WinnerID)
	}
	if turn.State.Player1Score != 12 {
		t.Errorf("survivor bonus = %d, want 12 (120/10)", turn.State.Player1Score)
	}
}

func TestCheckTimeoutIdempotentOnFinishedGame(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Game.Status = models.StatusFinished

	out, err := e.Apply(turn, Action{Kind: ActionCheckTimeout})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "" || out.Ended {
		t.Fatalf("outcome = %+v, want no-op on finished game", out)
	}
}

func TestActionsOnFinishedGameRejected(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Game.Status = models.StatusFinished

	for _, kind := range []ActionKind{ActionGuessLetter, ActionGuessWord, ActionRequestHint, ActionRevealLetter, ActionPause, ActionResume} {
		if _, err := e.Apply(turn, Action{Kind: kind, Letter: "c", Word: "cake"}); !errors.Is(err, ErrGameFinished) {
			t.Errorf("%s on finished game: err = %v, want ErrGameFinished", kind, err)
		}
	}
}

func TestEndGameWritesNoSecondHistory(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())

	out, err := e.Apply(turn, Action{Kind: ActionGuessWord, Word: "cake"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Histories) != 2 {
		t.Fatalf("histories = %d, want 2", len(out.Histories))
	}
	scoreAfter := turn.State.Player1Score
	xpAfter := turn.Player1.XP

	// A second terminal action must not produce more records or rewards.
	out2, err := e.Apply(turn, Action{Kind: ActionCheckTimeout})
	if err != nil {
		t.Fatal(err)
	}
	if len(out2.Histories) != 0 {
		t.Errorf("second end produced %d histories", len(out2.Histories))
	}
	if turn.State.Player1Score != scoreAfter || turn.Player1.XP != xpAfter {
		t.Error("second end changed score or xp")
	}
}

func TestDrawOnEqualScores(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.State.Player1Score = 40
	turn.State.Player2Score = 40

	out, err := e.endGame(turn, "all_letters_guessed", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.WinnerID != nil {
		t.Fatalf("winner = %v, want draw (nil)", out.WinnerID)
	}
	for _, h := range out.Histories {
		if h.Result != models.ResultDraw {
			t.Errorf("history result = %s, want draw", h.Result)
		}
	}
	if turn.Player1.XP != 0 || turn.Player2.XP != 0 {
		t.Error("draw must not award xp")
	}
}

func TestPauseAndResumeShiftTurnClock(t *testing.T) {
	e := testEngine()
	start := time.Now()
	turn := activeTurn(start)

	// 5 seconds into the turn, pause.
	turn.Now = start.Add(5 * time.Second)
	out, err := e.Apply(turn, Action{Kind: ActionPause})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "game_paused" || turn.Game.Status != models.StatusPaused {
		t.Fatalf("pause failed: %+v status=%s", out, turn.Game.Status)
	}

	// Guessing while paused is rejected.
	turn.Actor = turn.Player1
	if _, err := e.Apply(turn, Action{Kind: ActionGuessLetter, Letter: "c", Position: 0}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("guess while paused: err = %v, want ErrInvalidStateTransition", err)
	}

	// Resume after a 10 minute real-world gap.
	turn.Now = turn.Now.Add(10 * time.Minute)
	out, err = e.Apply(turn, Action{Kind: ActionResume})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != "game_resumed" || turn.Game.Status != models.StatusActive {
		t.Fatalf("resume failed: %+v status=%s", out, turn.Game.Status)
	}
	if turn.State.PausedAt != nil {
		t.Error("pausedAt not cleared on resume")
	}

	// Elapsed turn time must still read 5s: the pause interval is excluded.
	elapsed := turn.Now.Sub(*turn.State.LastTurnTime)
	if elapsed != 5*time.Second {
		t.Errorf("elapsed turn time after resume = %v, want 5s", elapsed)
	}
}

func TestPausePendingGameRejected(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	turn.Game.Status = models.StatusPending
	turn.Game.Player2ID = nil
	turn.Player2 = nil

	if _, err := e.Apply(turn, Action{Kind: ActionPause}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestTurnAlternationAfterEveryGuess(t *testing.T) {
	e := testEngine()
	turn := activeTurn(time.Now())
	actors := map[uint]*models.User{1: turn.Player1, 2: turn.Player2}

	for i := 0; i < 6; i++ {
		actorID := *turn.State.CurrentPlayerID
		guess(t, e, turn, actors[actorID], "Z", 1) // always wrong, game never ends
		if *turn.State.CurrentPlayerID == actorID {
			t.Fatalf("turn %d: current player did not alternate", i)
		}
	}
}

func TestParseAction(t *testing.T) {
	for name, want := range map[string]ActionKind{
		"join_game":     ActionJoin,
		"guess_letter":  ActionGuessLetter,
		"guess_word":    ActionGuessWord,
		"request_hint":  ActionRequestHint,
		"reveal_letter": ActionRevealLetter,
		"pause_game":    ActionPause,
		"resume_game":   ActionResume,
		"check_timeout": ActionCheckTimeout,
	} {
		got, err := ParseAction(name)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %v, %v", name, got, err)
		}
	}

	if _, err := ParseAction("steal_coins"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown action: err = %v, want ErrInvalidInput", err)
	}
}
