package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GuessRecord is one entry in the append-only guess log. Entries are never
// mutated or removed; repeated guesses at the same position each get their
// own record and are scored every time.
type GuessRecord struct {
	Letter   string `json:"letter"`
	Position int    `json:"position"`
	Correct  bool   `json:"correct"`
	PlayerID uint   `json:"player_id"`
}

// GuessLog is stored as a JSONB column. The shape is validated when read
// back so a malformed blob fails loudly instead of corrupting the engine.
type GuessLog []GuessRecord

func (l GuessLog) Value() (driver.Value, error) {
	if l == nil {
		l = GuessLog{}
	}
	return json.Marshal(l)
}

func (l *GuessLog) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	var out GuessLog
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("invalid guess log: %w", err)
	}
	for i, g := range out {
		if len([]rune(g.Letter)) != 1 || g.Position < 0 {
			return fmt.Errorf("invalid guess log entry at %d", i)
		}
	}
	*l = out
	return nil
}

// CorrectPositions returns the distinct positions that at least one correct
// guess covers. Computed over positions, not letters, so repeated letters
// in the word are handled correctly.
func (l GuessLog) CorrectPositions() map[int]bool {
	positions := make(map[int]bool)
	for _, g := range l {
		if g.Correct {
			positions[g.Position] = true
		}
	}
	return positions
}

// PlayerIntsMap maps a player ID (decimal string, JSON object keys must be
// strings) to an ordered int sequence. Used for both per-player revealed
// positions and per-player hint tiers.
type PlayerIntsMap map[string][]int

func (m PlayerIntsMap) Value() (driver.Value, error) {
	if m == nil {
		m = PlayerIntsMap{}
	}
	return json.Marshal(m)
}

func (m *PlayerIntsMap) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	var out PlayerIntsMap
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("invalid player map: %w", err)
	}
	if out == nil {
		out = PlayerIntsMap{}
	}
	*m = out
	return nil
}

// ForPlayer returns the sequence for a player, never nil-keyed writes.
func (m PlayerIntsMap) ForPlayer(playerID uint) []int {
	return m[fmt.Sprintf("%d", playerID)]
}

func (m PlayerIntsMap) Append(playerID uint, v int) {
	key := fmt.Sprintf("%d", playerID)
	m[key] = append(m[key], v)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return []byte("null"), nil
	default:
		return nil, errors.New("unsupported jsonb source type")
	}
}

// GameState is the authoritative mutable state of one game, one-to-one with
// Game. Every read-modify-write of this record runs inside the per-game
// exclusive scope owned by the game service.
type GameState struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	GameID          string `json:"game_id" gorm:"uniqueIndex;not null;type:uuid"`
	WordID          uint   `json:"-" gorm:"not null"`
	CurrentPlayerID *uint  `json:"current_player_id"`

	GuessedLetters  GuessLog      `json:"guessed_letters" gorm:"type:jsonb;default:'[]'"`
	RevealedLetters PlayerIntsMap `json:"-" gorm:"type:jsonb;default:'{}'"` // private per-player view
	HintsUsed       PlayerIntsMap `json:"-" gorm:"type:jsonb;default:'{}'"` // private per-player view

	Player1Score int `json:"player1_score" gorm:"not null;default:0"`
	Player2Score int `json:"player2_score" gorm:"not null;default:0"`
	Player1Time  int `json:"player1_time" gorm:"not null"` // remaining seconds
	Player2Time  int `json:"player2_time" gorm:"not null"`

	LastTurnTime *time.Time `json:"last_turn_time"`
	PausedAt     *time.Time `json:"paused_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Word Word `json:"-" gorm:"foreignKey:WordID"`
}

// ScoreOf returns the score field for one of the two players.
func (s *GameState) ScoreOf(game *Game, playerID uint) int {
	if game.Player1ID == playerID {
		return s.Player1Score
	}
	return s.Player2Score
}

// AddScore applies a delta to the right player's score field.
func (s *GameState) AddScore(game *Game, playerID uint, delta int) {
	if game.Player1ID == playerID {
		s.Player1Score += delta
	} else {
		s.Player2Score += delta
	}
}

// TimeOf returns the remaining time budget for one of the two players.
func (s *GameState) TimeOf(game *Game, playerID uint) int {
	if game.Player1ID == playerID {
		return s.Player1Time
	}
	return s.Player2Time
}

// ChargeTime deducts elapsed seconds from a player's budget. Budgets are
// monotonically non-increasing; negative deltas are ignored.
func (s *GameState) ChargeTime(game *Game, playerID uint, seconds int) {
	if seconds <= 0 {
		return
	}
	if game.Player1ID == playerID {
		s.Player1Time -= seconds
	} else {
		s.Player2Time -= seconds
	}
}
