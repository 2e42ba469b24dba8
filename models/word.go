package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Word is reference data: seeded once, read-only at runtime.
type Word struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Text       string         `json:"text" gorm:"uniqueIndex;not null"`
	Difficulty string         `json:"difficulty" gorm:"not null;index"` // easy, medium, hard
	Hint1      string         `json:"-" gorm:"not null"`
	Hint2      string         `json:"-" gorm:"not null"`
	Hint3      string         `json:"-" gorm:"not null"`
	CreatedAt  time.Time      `json:"-"`
	UpdatedAt  time.Time      `json:"-"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Hint returns the hint for a tier (1..3), empty string otherwise.
func (w *Word) Hint(tier int) string {
	switch tier {
	case 1:
		return w.Hint1
	case 2:
		return w.Hint2
	case 3:
		return w.Hint3
	}
	return ""
}
