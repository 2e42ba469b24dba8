package services

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/mamad2002github/GuessWord/config"
	"github.com/mamad2002github/GuessWord/models"
)

// ActionKind is the closed set of game actions. Adding an action means
// extending this enum and the switch in Engine.Apply.
type ActionKind int

const (
	ActionJoin ActionKind = iota
	ActionGuessLetter
	ActionGuessWord
	ActionRequestHint
	ActionRevealLetter
	ActionPause
	ActionResume
	ActionCheckTimeout
)

var actionNames = map[string]ActionKind{
	"join_game":     ActionJoin,
	"guess_letter":  ActionGuessLetter,
	"guess_word":    ActionGuessWord,
	"request_hint":  ActionRequestHint,
	"reveal_letter": ActionRevealLetter,
	"pause_game":    ActionPause,
	"resume_game":   ActionResume,
	"check_timeout": ActionCheckTimeout,
}

// ParseAction maps a wire action name onto the closed action set.
func ParseAction(name string) (ActionKind, error) {
	kind, ok := actionNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, name)
	}
	return kind, nil
}

func (k ActionKind) String() string {
	for name, kind := range actionNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Action carries one requested transition. Only the fields relevant to the
// Kind are read.
type Action struct {
	Kind     ActionKind
	Letter   string
	Position int
	Word     string
}

// Turn bundles the records one transition operates on. Everything is loaded
// inside the caller's transaction; the engine mutates these values in memory
// and the caller persists whatever it reports as changed.
type Turn struct {
	Game    *models.Game
	State   *models.GameState
	Word    *models.Word
	Player1 *models.User
	Player2 *models.User // nil until joined
	Actor   *models.User // nil for system-triggered timeout checks
	Now     time.Time
}

func (t *Turn) player(id uint) *models.User {
	if t.Player1 != nil && t.Player1.ID == id {
		return t.Player1
	}
	if t.Player2 != nil && t.Player2.ID == id {
		return t.Player2
	}
	if t.Actor != nil && t.Actor.ID == id {
		return t.Actor
	}
	return nil
}

// Personal is a payload delivered only to the acting participant. Hint and
// reveal results must not leak to the opponent.
type Personal struct {
	Type string
	Data map[string]interface{}
}

// Outcome reports what a committed transition changed, for the caller to
// broadcast after its transaction commits. A zero Event means nothing
// happened (an idempotent no-op).
type Outcome struct {
	Event     string
	Ended     bool
	EndReason string
	WinnerID  *uint
	Personal  *Personal
	Histories []models.GameHistory
}

// Engine implements the game state machine as pure in-memory transitions.
// It performs no I/O; randomness is injected so tests are deterministic.
type Engine struct {
	cfg config.GameConfig
	rng *rand.Rand
}

func NewEngine(cfg config.GameConfig, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{cfg: cfg, rng: rng}
}

// Apply runs one action against the turn's records. On error no record has
// been mutated.
func (e *Engine) Apply(t *Turn, action Action) (*Outcome, error) {
	if t.Game.Status == models.StatusFinished {
		if action.Kind == ActionCheckTimeout {
			return &Outcome{}, nil // idempotent no-op
		}
		return nil, ErrGameFinished
	}

	switch action.Kind {
	case ActionJoin:
		return e.join(t)
	case ActionGuessLetter:
		return e.guessLetter(t, action.Letter, action.Position)
	case ActionGuessWord:
		return e.guessWord(t, action.Word)
	case ActionRequestHint:
		return e.requestHint(t)
	case ActionRevealLetter:
		return e.revealLetter(t)
	case ActionPause:
		return e.pause(t)
	case ActionResume:
		return e.resume(t)
	case ActionCheckTimeout:
		return e.checkTimeout(t)
	}
	return nil, fmt.Errorf("%w: unknown action kind %d", ErrInvalidInput, action.Kind)
}

func (e *Engine) join(t *Turn) (*Outcome, error) {
	if t.Game.Status != models.StatusPending || t.Game.Player2ID != nil {
		return nil, fmt.Errorf("%w: game is not open for joining", ErrInvalidStateTransition)
	}
	if t.Actor == nil || t.Actor.ID == t.Game.Player1ID {
		return nil, fmt.Errorf("%w: cannot join your own game", ErrForbidden)
	}

	t.Game.Player2ID = &t.Actor.ID
	t.Game.Status = models.StatusActive
	t.Player2 = t.Actor

	// First turn goes to either player with equal probability.
	current := t.Game.Player1ID
	if e.rng.Intn(2) == 1 {
		current = t.Actor.ID
	}
	t.State.CurrentPlayerID = &current
	now := t.Now
	t.State.LastTurnTime = &now

	if t.State.RevealedLetters == nil {
		t.State.RevealedLetters = models.PlayerIntsMap{}
	}
	if t.State.HintsUsed == nil {
		t.State.HintsUsed = models.PlayerIntsMap{}
	}
	key := fmt.Sprintf("%d", t.Actor.ID)
	if _, ok := t.State.RevealedLetters[key]; !ok {
		t.State.RevealedLetters[key] = []int{}
	}
	if _, ok := t.State.HintsUsed[key]; !ok {
		t.State.HintsUsed[key] = []int{}
	}

	return &Outcome{Event: "player_joined"}, nil
}

func (e *Engine) guessLetter(t *Turn, letter string, position int) (*Outcome, error) {
	if err := e.requireTurn(t); err != nil {
		return nil, err
	}

	runes := []rune(letter)
	if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
		return nil, fmt.Errorf("%w: guess must be a single letter", ErrInvalidInput)
	}
	wordRunes := []rune(strings.ToUpper(t.Word.Text))
	if position < 0 || position >= len(wordRunes) {
		return nil, fmt.Errorf("%w: position %d out of range", ErrInvalidInput, position)
	}

	upper := strings.ToUpper(string(runes[0]))
	correct := upper == string(wordRunes[position])

	// Append-only log: a repeated guess at the same position gets its own
	// entry and is scored again.
	t.State.GuessedLetters = append(t.State.GuessedLetters, models.GuessRecord{
		Letter:   upper,
		Position: position,
		Correct:  correct,
		PlayerID: t.Actor.ID,
	})

	if correct {
		t.State.AddScore(t.Game, t.Actor.ID, e.cfg.CorrectLetterPts)
		t.Actor.Coins += e.cfg.CorrectLetterCoin
	} else {
		t.State.AddScore(t.Game, t.Actor.ID, e.cfg.WrongLetterPts)
	}

	e.handOverTurn(t, t.Actor.ID)

	if len(t.State.GuessedLetters.CorrectPositions()) == len(wordRunes) {
		return e.endGame(t, "all_letters_guessed", nil)
	}
	return &Outcome{Event: "letter_guessed"}, nil
}

func (e *Engine) guessWord(t *Turn, guess string) (*Outcome, error) {
	if err := e.requireTurn(t); err != nil {
		return nil, err
	}
	if strings.TrimSpace(guess) == "" {
		return nil, fmt.Errorf("%w: empty word guess", ErrInvalidInput)
	}

	var winner uint
	if strings.EqualFold(guess, t.Word.Text) {
		winner = t.Actor.ID
		t.State.AddScore(t.Game, winner, e.cfg.WordGuessPts)
	} else {
		// A wrong full-word guess hands the win to the opponent.
		winner = t.Game.Opponent(t.Actor.ID)
		t.State.AddScore(t.Game, winner, e.cfg.WrongWordPts)
	}
	return e.endGame(t, "word_guessed", &winner)
}

func (e *Engine) requestHint(t *Turn) (*Outcome, error) {
	if err := e.requireActive(t); err != nil {
		return nil, err
	}
	if t.Actor == nil || !t.Game.HasPlayer(t.Actor.ID) {
		return nil, ErrForbidden
	}
	if t.Actor.Coins < e.cfg.HintCost {
		return nil, ErrInsufficientFunds
	}

	used := t.State.HintsUsed.ForPlayer(t.Actor.ID)
	tier := len(used) + 1
	if tier > 3 {
		return nil, fmt.Errorf("%w: all hints used", ErrInvalidStateTransition)
	}
	hint := t.Word.Hint(tier)

	t.Actor.Coins -= e.cfg.HintCost
	if t.State.HintsUsed == nil {
		t.State.HintsUsed = models.PlayerIntsMap{}
	}
	t.State.HintsUsed.Append(t.Actor.ID, tier)
	// Hints never change the turn or the turn timer.

	return &Outcome{
		Event: "hint_taken",
		Personal: &Personal{
			Type: "hint_provided",
			Data: map[string]interface{}{
				"hint":  hint,
				"tier":  tier,
				"coins": t.Actor.Coins,
			},
		},
	}, nil
}

func (e *Engine) revealLetter(t *Turn) (*Outcome, error) {
	if err := e.requireActive(t); err != nil {
		return nil, err
	}
	if t.Actor == nil || !t.Game.HasPlayer(t.Actor.ID) {
		return nil, ErrForbidden
	}
	if t.Actor.Coins < e.cfg.RevealCost {
		return nil, ErrInsufficientFunds
	}

	wordRunes := []rune(strings.ToUpper(t.Word.Text))
	correct := t.State.GuessedLetters.CorrectPositions()
	revealed := make(map[int]bool)
	for _, p := range t.State.RevealedLetters.ForPlayer(t.Actor.ID) {
		revealed[p] = true
	}

	var eligible []int
	for i := range wordRunes {
		if !correct[i] && !revealed[i] {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no positions left to reveal", ErrInvalidInput)
	}

	position := eligible[e.rng.Intn(len(eligible))]

	t.Actor.Coins -= e.cfg.RevealCost
	if t.State.RevealedLetters == nil {
		t.State.RevealedLetters = models.PlayerIntsMap{}
	}
	t.State.RevealedLetters.Append(t.Actor.ID, position)
	// Reveals never change the turn or the turn timer.

	return &Outcome{
		Event: "letter_revealed",
		Personal: &Personal{
			Type: "letter_revealed",
			Data: map[string]interface{}{
				"letter":   string(wordRunes[position]),
				"position": position,
				"coins":    t.Actor.Coins,
			},
		},
	}, nil
}

func (e *Engine) pause(t *Turn) (*Outcome, error) {
	if t.Game.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: only an active game can be paused", ErrInvalidStateTransition)
	}
	if t.Game.Player2ID == nil {
		return nil, fmt.Errorf("%w: game has no second player yet", ErrInvalidStateTransition)
	}

	t.Game.Status = models.StatusPaused
	now := t.Now
	t.State.PausedAt = &now

	return &Outcome{Event: "game_paused"}, nil
}

func (e *Engine) resume(t *Turn) (*Outcome, error) {
	if t.Game.Status != models.StatusPaused {
		return nil, fmt.Errorf("%w: game is not paused", ErrInvalidStateTransition)
	}

	t.Game.Status = models.StatusActive
	if t.State.PausedAt != nil && t.State.LastTurnTime != nil {
		// Shift the turn clock forward so the pause interval is not billed
		// against the current player.
		shifted := t.State.LastTurnTime.Add(t.Now.Sub(*t.State.PausedAt))
		t.State.LastTurnTime = &shifted
	} else {
		now := t.Now
		t.State.LastTurnTime = &now
	}
	t.State.PausedAt = nil

	return &Outcome{Event: "game_resumed"}, nil
}

func (e *Engine) checkTimeout(t *Turn) (*Outcome, error) {
	if t.Game.Status != models.StatusActive {
		return &Outcome{}, nil
	}

	switched := false
	if t.State.CurrentPlayerID != nil && t.State.LastTurnTime != nil {
		if t.Now.Sub(*t.State.LastTurnTime) > e.cfg.TurnTimeout {
			// Forced switch, no score penalty.
			e.handOverTurn(t, *t.State.CurrentPlayerID)
			switched = true
		}
	}

	if t.State.Player1Time <= 0 {
		return e.endOnTimeUp(t, *t.Game.Player2ID)
	}
	if t.State.Player2Time <= 0 {
		return e.endOnTimeUp(t, t.Game.Player1ID)
	}

	if switched {
		return &Outcome{Event: "turn_timeout"}, nil
	}
	return &Outcome{}, nil
}

// endOnTimeUp finishes the game in favor of the player whose budget
// survived, with a bonus proportional to their remaining time.
func (e *Engine) endOnTimeUp(t *Turn, survivor uint) (*Outcome, error) {
	if remaining := t.State.TimeOf(t.Game, survivor); remaining > 0 {
		t.State.AddScore(t.Game, survivor, remaining/10)
	}
	return e.endGame(t, "player_time_up", &survivor)
}

// handOverTurn charges the elapsed turn seconds to the player giving up the
// turn, then passes it to the opponent and resets the turn clock.
func (e *Engine) handOverTurn(t *Turn, from uint) {
	if t.State.LastTurnTime != nil {
		t.State.ChargeTime(t.Game, from, int(t.Now.Sub(*t.State.LastTurnTime).Seconds()))
	}
	next := t.Game.Opponent(from)
	t.State.CurrentPlayerID = &next
	now := t.Now
	t.State.LastTurnTime = &now
}

// endGame is the single terminal transition. It is only reached on a
// non-finished game (Apply guards the finished state), so history records
// and the XP award happen exactly once per game.
func (e *Engine) endGame(t *Turn, reason string, explicitWinner *uint) (*Outcome, error) {
	t.Game.Status = models.StatusFinished
	t.State.CurrentPlayerID = nil

	winner := explicitWinner
	if winner == nil {
		if t.State.Player1Score > t.State.Player2Score {
			winner = &t.Game.Player1ID
		} else if t.State.Player2Score > t.State.Player1Score {
			winner = t.Game.Player2ID
		}
		// Equal scores leave winner nil: a draw.
	}
	t.Game.WinnerID = winner

	if winner != nil {
		if u := t.player(*winner); u != nil {
			u.XP += e.cfg.WinXP
		}
	}

	out := &Outcome{
		Event:     "game_ended",
		Ended:     true,
		EndReason: reason,
		WinnerID:  winner,
	}
	out.Histories = e.buildHistories(t, winner)
	return out, nil
}

func (e *Engine) buildHistories(t *Turn, winner *uint) []models.GameHistory {
	var histories []models.GameHistory
	record := func(playerID uint, opponentID *uint) {
		result := models.ResultDraw
		if winner != nil {
			if *winner == playerID {
				result = models.ResultWon
			} else {
				result = models.ResultLost
			}
		}
		histories = append(histories, models.GameHistory{
			GameID:     t.Game.ID,
			PlayerID:   playerID,
			OpponentID: opponentID,
			Difficulty: t.Game.Difficulty,
			Result:     result,
			FinalScore: t.State.ScoreOf(t.Game, playerID),
		})
	}

	record(t.Game.Player1ID, t.Game.Player2ID)
	if t.Game.Player2ID != nil {
		p1 := t.Game.Player1ID
		record(*t.Game.Player2ID, &p1)
	}
	return histories
}

func (e *Engine) requireActive(t *Turn) error {
	if t.Game.Status != models.StatusActive {
		return fmt.Errorf("%w: game is %s", ErrInvalidStateTransition, t.Game.Status)
	}
	return nil
}

func (e *Engine) requireTurn(t *Turn) error {
	if err := e.requireActive(t); err != nil {
		return err
	}
	if t.Actor == nil || !t.Game.HasPlayer(t.Actor.ID) {
		return ErrForbidden
	}
	if t.State.CurrentPlayerID == nil || *t.State.CurrentPlayerID != t.Actor.ID {
		return ErrInvalidTurn
	}
	return nil
}
