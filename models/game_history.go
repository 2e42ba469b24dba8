package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultDraw = "draw"
)

// GameHistory is an append-only outcome record, written exactly once per
// assigned player when a game finishes.
type GameHistory struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	GameID     string         `json:"game_id" gorm:"not null;type:uuid;index"`
	PlayerID   uint           `json:"player_id" gorm:"not null;index"`
	OpponentID *uint          `json:"opponent_id"`
	Difficulty string         `json:"difficulty" gorm:"not null"`
	Result     string         `json:"result" gorm:"not null"` // won, lost, draw
	FinalScore int            `json:"final_score" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"-"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Game     Game  `json:"game,omitempty" gorm:"foreignKey:GameID"`
	Player   User  `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
	Opponent *User `json:"opponent,omitempty" gorm:"foreignKey:OpponentID"`
}
