package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusFinished = "finished"
)

// Game is the externally addressable game record. Player2 and Winner stay
// nil until a second player joins / the game finishes. A game with no
// second player is always pending; a finished game is never written again.
type Game struct {
	ID         string         `json:"id" gorm:"primaryKey;type:uuid"`
	Player1ID  uint           `json:"player1_id" gorm:"not null"`
	Player2ID  *uint          `json:"player2_id"`
	Difficulty string         `json:"difficulty" gorm:"not null"`
	Status     string         `json:"status" gorm:"not null;default:'pending'"` // pending, active, paused, finished
	WinnerID   *uint          `json:"winner_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Player1 User       `json:"player1,omitempty" gorm:"foreignKey:Player1ID"`
	Player2 *User      `json:"player2,omitempty" gorm:"foreignKey:Player2ID"`
	Winner  *User      `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
	State   *GameState `json:"state,omitempty" gorm:"foreignKey:GameID"`
}

// HasPlayer reports whether userID occupies either player slot.
func (g *Game) HasPlayer(userID uint) bool {
	if g.Player1ID == userID {
		return true
	}
	return g.Player2ID != nil && *g.Player2ID == userID
}

// Opponent returns the other player's ID, or 0 when the slot is empty.
func (g *Game) Opponent(userID uint) uint {
	if g.Player1ID == userID {
		if g.Player2ID != nil {
			return *g.Player2ID
		}
		return 0
	}
	return g.Player1ID
}
