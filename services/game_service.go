package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mamad2002github/GuessWord/config"
	"github.com/mamad2002github/GuessWord/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GameService owns all game state mutation. Every transition runs under a
// per-game mutex wrapping a database transaction: read, validate, mutate,
// persist. Broadcasting happens in the caller, strictly after Dispatch
// returns, so no I/O to participants ever holds the game lock.
type GameService struct {
	db     *gorm.DB
	redis  *redis.Client
	cfg    config.GameConfig
	engine *Engine

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGameService(db *gorm.DB, redisClient *redis.Client, cfg config.GameConfig, engine *Engine) *GameService {
	return &GameService{
		db:     db,
		redis:  redisClient,
		cfg:    cfg,
		engine: engine,
		locks:  map[string]*sync.Mutex{},
	}
}

func (s *GameService) lockFor(gameID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[gameID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[gameID] = l
	return l
}

type CreateGameRequest struct {
	Difficulty string `json:"difficulty" binding:"required"`
}

// CreateGame opens a pending game for userID with a random word of the
// requested difficulty. A user can only be in one open game at a time.
func (s *GameService) CreateGame(userID uint, req *CreateGameRequest) (*models.Game, error) {
	difficulty := strings.ToLower(req.Difficulty)
	if !models.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidInput)
	}

	var open int64
	s.db.Model(&models.Game{}).
		Where("status IN ? AND (player1_id = ? OR player2_id = ?)",
			[]string{models.StatusPending, models.StatusActive}, userID, userID).
		Count(&open)
	if open > 0 {
		return nil, fmt.Errorf("%w: you are already in an open game", ErrInvalidStateTransition)
	}

	var word models.Word
	if err := s.db.Where("difficulty = ?", difficulty).Order("RANDOM()").First(&word).Error; err != nil {
		return nil, fmt.Errorf("%w: no words for difficulty %s", ErrNotFound, difficulty)
	}

	budget := s.cfg.TimeBudget(difficulty)
	game := models.Game{
		ID:         uuid.NewString(),
		Player1ID:  userID,
		Difficulty: difficulty,
		Status:     models.StatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		state := models.GameState{
			GameID:          game.ID,
			WordID:          word.ID,
			GuessedLetters:  models.GuessLog{},
			RevealedLetters: models.PlayerIntsMap{},
			HintsUsed:       models.PlayerIntsMap{},
			Player1Time:     budget,
			Player2Time:     budget,
		}
		return tx.Create(&state).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Game %s created by user %d (difficulty %s, word #%d)", game.ID, userID, difficulty, word.ID)
	return &game, nil
}

// Dispatch is the single entry point for all state-mutating game actions.
// The acting user is always passed explicitly; system-triggered timeout
// checks use actorID 0. The returned snapshot reflects the committed state.
func (s *GameService) Dispatch(gameID string, actorID uint, action Action) (*Outcome, *GameSnapshot, error) {
	lock := s.lockFor(gameID)
	lock.Lock()

	var outcome *Outcome
	var turn *Turn
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var loadErr error
		turn, loadErr = s.loadTurn(tx, gameID, actorID, action.Kind)
		if loadErr != nil {
			return loadErr
		}

		out, applyErr := s.engine.Apply(turn, action)
		if applyErr != nil {
			return applyErr
		}
		outcome = out

		if out.Event == "" {
			return nil // idempotent no-op, nothing to persist
		}
		return s.persistTurn(tx, turn, out)
	})
	lock.Unlock()

	if err != nil {
		return nil, nil, err
	}

	snapshot := s.buildPublicSnapshot(turn.Game, turn.State, turn.Word, turn.Player1, turn.Player2)
	if outcome.Event != "" {
		s.cacheSnapshot(snapshot)
	}
	return outcome, snapshot, nil
}

// loadTurn reads every record a transition may touch inside the current
// transaction. Membership is validated here: only participants may act,
// except joining a pending game and timeout checks, which any party (or the
// background sweeper) may trigger.
func (s *GameService) loadTurn(tx *gorm.DB, gameID string, actorID uint, kind ActionKind) (*Turn, error) {
	var game models.Game
	if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return nil, err
	}

	var state models.GameState
	if err := tx.Preload("Word").First(&state, "game_id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: state for game %s", ErrNotFound, gameID)
		}
		return nil, err
	}

	turn := &Turn{
		Game:  &game,
		State: &state,
		Word:  &state.Word,
		Now:   time.Now(),
	}

	var player1 models.User
	if err := tx.First(&player1, game.Player1ID).Error; err != nil {
		return nil, err
	}
	turn.Player1 = &player1

	if game.Player2ID != nil {
		var player2 models.User
		if err := tx.First(&player2, *game.Player2ID).Error; err != nil {
			return nil, err
		}
		turn.Player2 = &player2
	}

	switch {
	case actorID == 0:
		if kind != ActionCheckTimeout {
			return nil, ErrForbidden
		}
	case game.HasPlayer(actorID):
		turn.Actor = turn.player(actorID)
	case kind == ActionJoin:
		var joiner models.User
		if err := tx.First(&joiner, actorID).Error; err != nil {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
		}
		var open int64
		tx.Model(&models.Game{}).
			Where("status IN ? AND (player1_id = ? OR player2_id = ?) AND id <> ?",
				[]string{models.StatusPending, models.StatusActive}, actorID, actorID, gameID).
			Count(&open)
		if open > 0 {
			return nil, fmt.Errorf("%w: you are already in an open game", ErrInvalidStateTransition)
		}
		turn.Actor = &joiner
	case kind == ActionCheckTimeout:
		// Anyone may poke the timeout check; it mutates nothing unless a
		// timeout really occurred.
	default:
		return nil, ErrForbidden
	}

	return turn, nil
}

func (s *GameService) persistTurn(tx *gorm.DB, turn *Turn, out *Outcome) error {
	if err := tx.Save(turn.Game).Error; err != nil {
		return err
	}
	if err := tx.Omit("Word").Save(turn.State).Error; err != nil {
		return err
	}

	users := map[uint]*models.User{}
	for _, u := range []*models.User{turn.Player1, turn.Player2, turn.Actor} {
		if u != nil {
			users[u.ID] = u
		}
	}
	for _, u := range users {
		if err := tx.Save(u).Error; err != nil {
			return err
		}
	}

	for i := range out.Histories {
		if err := tx.Create(&out.Histories[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// RunTimeoutSweeper polls active games and pushes them through the same
// CheckTimeout dispatch path a client message would use. The per-game lock
// makes redundant checks harmless. Committed transitions are announced
// through broadcast, which is invoked by the caller via the returned
// outcomes; the sweeper broadcasts itself through fn.
func (s *GameService) RunTimeoutSweeper(stop <-chan struct{}, broadcast func(gameID string, out *Outcome, snap *GameSnapshot)) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var ids []string
			if err := s.db.Model(&models.Game{}).
				Where("status = ?", models.StatusActive).
				Pluck("id", &ids).Error; err != nil {
				log.Printf("Timeout sweep query failed: %v", err)
				continue
			}
			for _, id := range ids {
				out, snap, err := s.Dispatch(id, 0, Action{Kind: ActionCheckTimeout})
				if err != nil {
					log.Printf("Timeout sweep for game %s failed: %v", id, err)
					continue
				}
				if out.Event != "" && broadcast != nil {
					broadcast(id, out, snap)
				}
			}
		}
	}
}

// --- snapshots ---

type PlayerView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	TimeLeft int    `json:"time_left"`
}

// GameSnapshot is the shared view of a game: safe to broadcast to both
// participants. The secret word never appears; the display string only
// shows letters with at least one correct guess.
type GameSnapshot struct {
	GameID          string          `json:"game_id"`
	Status          string          `json:"status"`
	Difficulty      string          `json:"difficulty"`
	Player1         *PlayerView     `json:"player1"`
	Player2         *PlayerView     `json:"player2,omitempty"`
	CurrentPlayerID *uint           `json:"current_player_id,omitempty"`
	WinnerID        *uint           `json:"winner_id,omitempty"`
	WordLength      int             `json:"word_length"`
	Display         string          `json:"display"`
	GuessedLetters  models.GuessLog `json:"guessed_letters"`
	Paused          bool            `json:"paused"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RevealedLetter is one privately purchased reveal.
type RevealedLetter struct {
	Position int    `json:"position"`
	Letter   string `json:"letter"`
}

// PersonalSnapshot extends the shared view with the requester's private
// progress. It is only ever sent to that requester.
type PersonalSnapshot struct {
	GameSnapshot
	YourDisplay string           `json:"your_display"`
	YourCoins   int              `json:"your_coins"`
	HintsUsed   []int            `json:"hints_used"`
	Revealed    []RevealedLetter `json:"revealed"`
}

func (s *GameService) buildPublicSnapshot(game *models.Game, state *models.GameState, word *models.Word, p1, p2 *models.User) *GameSnapshot {
	snap := &GameSnapshot{
		GameID:          game.ID,
		Status:          game.Status,
		Difficulty:      game.Difficulty,
		CurrentPlayerID: state.CurrentPlayerID,
		WinnerID:        game.WinnerID,
		WordLength:      len([]rune(word.Text)),
		Display:         maskWord(word.Text, state.GuessedLetters.CorrectPositions(), nil),
		GuessedLetters:  state.GuessedLetters,
		Paused:          game.Status == models.StatusPaused,
		CreatedAt:       game.CreatedAt,
	}
	if p1 != nil {
		snap.Player1 = &PlayerView{ID: p1.ID, Username: p1.Username, Score: state.Player1Score, TimeLeft: state.Player1Time}
	}
	if p2 != nil {
		snap.Player2 = &PlayerView{ID: p2.ID, Username: p2.Username, Score: state.Player2Score, TimeLeft: state.Player2Time}
	}
	return snap
}

// GetSnapshot returns the game view for one requesting participant,
// including only that participant's hint and reveal progress.
func (s *GameService) GetSnapshot(gameID string, userID uint) (*PersonalSnapshot, error) {
	var game models.Game
	if err := s.db.Preload("Player1").Preload("Player2").First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return nil, err
	}
	if !game.HasPlayer(userID) {
		return nil, ErrForbidden
	}

	var state models.GameState
	if err := s.db.Preload("Word").First(&state, "game_id = ?", gameID).Error; err != nil {
		return nil, fmt.Errorf("%w: state for game %s", ErrNotFound, gameID)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	public := s.buildPublicSnapshot(&game, &state, &state.Word, &game.Player1, game.Player2)
	personal := &PersonalSnapshot{
		GameSnapshot: *public,
		YourCoins:    user.Coins,
		HintsUsed:    state.HintsUsed.ForPlayer(userID),
	}
	if personal.HintsUsed == nil {
		personal.HintsUsed = []int{}
	}

	wordRunes := []rune(strings.ToUpper(state.Word.Text))
	revealedPositions := map[int]bool{}
	for _, p := range state.RevealedLetters.ForPlayer(userID) {
		if p >= 0 && p < len(wordRunes) {
			revealedPositions[p] = true
			personal.Revealed = append(personal.Revealed, RevealedLetter{Position: p, Letter: string(wordRunes[p])})
		}
	}
	if personal.Revealed == nil {
		personal.Revealed = []RevealedLetter{}
	}
	personal.YourDisplay = maskWord(state.Word.Text, state.GuessedLetters.CorrectPositions(), revealedPositions)

	return personal, nil
}

// maskWord renders the word with only the given positions visible, e.g.
// "_ A _ E" for CAKE.
func maskWord(word string, correct map[int]bool, revealed map[int]bool) string {
	runes := []rune(strings.ToUpper(word))
	parts := make([]string, len(runes))
	for i, r := range runes {
		if correct[i] || (revealed != nil && revealed[i]) {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}

func (s *GameService) cacheSnapshot(snap *GameSnapshot) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Failed to marshal snapshot for game %s: %v", snap.GameID, err)
		return
	}
	if err := s.redis.Set(context.Background(), "game:"+snap.GameID, data, s.cfg.SnapshotTTL).Err(); err != nil {
		log.Printf("Failed to cache snapshot for game %s: %v", snap.GameID, err)
	}
}

// PublicSnapshot serves the shared view, preferring the redis cache and
// falling back to the database.
func (s *GameService) PublicSnapshot(gameID string) (*GameSnapshot, error) {
	if s.redis != nil {
		data, err := s.redis.Get(context.Background(), "game:"+gameID).Result()
		if err == nil {
			var snap GameSnapshot
			if err := json.Unmarshal([]byte(data), &snap); err == nil {
				return &snap, nil
			}
		} else if err != redis.Nil {
			log.Printf("Redis error reading snapshot for game %s: %v", gameID, err)
		}
	}

	var game models.Game
	if err := s.db.Preload("Player1").Preload("Player2").First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return nil, err
	}
	var state models.GameState
	if err := s.db.Preload("Word").First(&state, "game_id = ?", gameID).Error; err != nil {
		return nil, fmt.Errorf("%w: state for game %s", ErrNotFound, gameID)
	}

	snap := s.buildPublicSnapshot(&game, &state, &state.Word, &game.Player1, game.Player2)
	s.cacheSnapshot(snap)
	return snap, nil
}

// IsParticipant reports whether userID belongs to the game. Used by the
// websocket attach path before a client joins a broadcast group.
func (s *GameService) IsParticipant(gameID string, userID uint) (bool, error) {
	var game models.Game
	if err := s.db.First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
		}
		return false, err
	}
	// Pending games accept prospective joiners over the socket.
	if game.Status == models.StatusPending {
		return true, nil
	}
	return game.HasPlayer(userID), nil
}

// --- lobby and history queries ---

type PendingGameView struct {
	ID         string    `json:"id"`
	Player1    string    `json:"player1"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingGames lists joinable games, oldest first (first-available pairing).
func (s *GameService) PendingGames() ([]PendingGameView, error) {
	var games []models.Game
	if err := s.db.Preload("Player1").
		Where("status = ? AND player2_id IS NULL", models.StatusPending).
		Order("created_at ASC").
		Find(&games).Error; err != nil {
		return nil, err
	}

	views := make([]PendingGameView, 0, len(games))
	for _, g := range games {
		views = append(views, PendingGameView{
			ID:         g.ID,
			Player1:    g.Player1.Username,
			Difficulty: g.Difficulty,
			CreatedAt:  g.CreatedAt,
		})
	}
	return views, nil
}

// PausedGames lists the caller's paused games so they can be resumed.
func (s *GameService) PausedGames(userID uint) ([]models.Game, error) {
	var games []models.Game
	err := s.db.Preload("Player1").Preload("Player2").
		Where("status = ? AND (player1_id = ? OR player2_id = ?)", models.StatusPaused, userID, userID).
		Order("updated_at DESC").
		Find(&games).Error
	return games, err
}

type HistoryView struct {
	GameID     string    `json:"game_id"`
	Opponent   string    `json:"opponent"`
	Difficulty string    `json:"difficulty"`
	Result     string    `json:"result"`
	FinalScore int       `json:"final_score"`
	PlayedAt   time.Time `json:"played_at"`
}

// History lists the caller's finished games, newest first.
func (s *GameService) History(userID uint) ([]HistoryView, error) {
	var records []models.GameHistory
	if err := s.db.Preload("Opponent").
		Where("player_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	views := make([]HistoryView, 0, len(records))
	for _, r := range records {
		opponent := ""
		if r.Opponent != nil {
			opponent = r.Opponent.Username
		}
		views = append(views, HistoryView{
			GameID:     r.GameID,
			Opponent:   opponent,
			Difficulty: r.Difficulty,
			Result:     r.Result,
			FinalScore: r.FinalScore,
			PlayedAt:   r.CreatedAt,
		})
	}
	return views, nil
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// Leaderboard returns the top players by XP.
func (s *GameService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []models.User
	if err := s.db.Order("xp DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, LeaderboardEntry{Username: u.Username, XP: u.XP, Level: u.Level()})
	}
	return entries, nil
}
