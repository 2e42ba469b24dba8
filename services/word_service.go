package services

import (
	"log"

	"github.com/mamad2002github/GuessWord/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WordService owns the word bank: reference data seeded once at startup
// and read-only afterwards.
type WordService struct {
	db *gorm.DB
}

func NewWordService(db *gorm.DB) *WordService {
	return &WordService{db: db}
}

// Seed loads the built-in word list, skipping words that already exist.
func (s *WordService) Seed() error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "text"}},
		DoNothing: true,
	}).Create(&seedWords)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("Word bank seeded (%d new words)", result.RowsAffected)
	return nil
}

// CountByDifficulty reports how many words each tier has.
func (s *WordService) CountByDifficulty() (map[string]int64, error) {
	counts := map[string]int64{}
	for _, d := range []string{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		var n int64
		if err := s.db.Model(&models.Word{}).Where("difficulty = ?", d).Count(&n).Error; err != nil {
			return nil, err
		}
		counts[d] = n
	}
	return counts, nil
}

// seedWords: 10 words per tier, with three graduated hints each. Easy words
// are 4 letters, medium 6, hard 9+.
var seedWords = []models.Word{
	{Text: "cake", Difficulty: models.DifficultyEasy, Hint1: "Something you eat", Hint2: "Served at birthdays", Hint3: "Often has candles on top"},
	{Text: "fish", Difficulty: models.DifficultyEasy, Hint1: "Lives in water", Hint2: "Has fins and scales", Hint3: "Breathes through gills"},
	{Text: "bird", Difficulty: models.DifficultyEasy, Hint1: "An animal", Hint2: "Has feathers", Hint3: "Most of them can fly"},
	{Text: "book", Difficulty: models.DifficultyEasy, Hint1: "Found on a shelf", Hint2: "Has many pages", Hint3: "You read it"},
	{Text: "moon", Difficulty: models.DifficultyEasy, Hint1: "Seen at night", Hint2: "Orbits the Earth", Hint3: "Covered in craters"},
	{Text: "ship", Difficulty: models.DifficultyEasy, Hint1: "Travels on water", Hint2: "Carries cargo", Hint3: "Has a captain"},
	{Text: "ring", Difficulty: models.DifficultyEasy, Hint1: "Worn on a finger", Hint2: "Round and circular", Hint3: "Usually shiny"},
	{Text: "desk", Difficulty: models.DifficultyEasy, Hint1: "Used for studying", Hint2: "Has drawers", Hint3: "Found in classrooms"},
	{Text: "rain", Difficulty: models.DifficultyEasy, Hint1: "Falls from the sky", Hint2: "Made of water", Hint3: "Brings umbrellas out"},
	{Text: "lamp", Difficulty: models.DifficultyEasy, Hint1: "Found in a room", Hint2: "Gives off light", Hint3: "Has a bulb and a shade"},

	{Text: "puzzle", Difficulty: models.DifficultyMedium, Hint1: "A brain game", Hint2: "Comes in pieces", Hint3: "You have to solve it"},
	{Text: "guitar", Difficulty: models.DifficultyMedium, Hint1: "A musical instrument", Hint2: "Has strings", Hint3: "Played with fingers or a pick"},
	{Text: "window", Difficulty: models.DifficultyMedium, Hint1: "Lets light in", Hint2: "Made of glass", Hint3: "You can open it"},
	{Text: "bridge", Difficulty: models.DifficultyMedium, Hint1: "Crosses a river", Hint2: "Connects two sides", Hint3: "Cars drive over it"},
	{Text: "camera", Difficulty: models.DifficultyMedium, Hint1: "Takes pictures", Hint2: "Has a lens", Hint3: "Captures memories"},
	{Text: "forest", Difficulty: models.DifficultyMedium, Hint1: "Full of trees", Hint2: "Home to wildlife", Hint3: "Green and dense"},
	{Text: "market", Difficulty: models.DifficultyMedium, Hint1: "A place to shop", Hint2: "Sells food", Hint3: "Usually crowded"},
	{Text: "rocket", Difficulty: models.DifficultyMedium, Hint1: "Goes to space", Hint2: "Launches upward", Hint3: "Used by astronauts"},
	{Text: "pencil", Difficulty: models.DifficultyMedium, Hint1: "Used for writing", Hint2: "Has an eraser", Hint3: "Made of wood"},
	{Text: "singer", Difficulty: models.DifficultyMedium, Hint1: "Performs songs", Hint2: "Uses their voice", Hint3: "Stands on a stage"},

	{Text: "strawberry", Difficulty: models.DifficultyHard, Hint1: "A red fruit", Hint2: "Has tiny seeds outside", Hint3: "Sweet and juicy"},
	{Text: "television", Difficulty: models.DifficultyHard, Hint1: "Shows programs", Hint2: "Has a screen", Hint3: "Sits in the living room"},
	{Text: "butterfly", Difficulty: models.DifficultyHard, Hint1: "Has colorful wings", Hint2: "Flies gently", Hint3: "Comes from a cocoon"},
	{Text: "pineapple", Difficulty: models.DifficultyHard, Hint1: "A tropical fruit", Hint2: "Spiky on the outside", Hint3: "Yellow and sweet inside"},
	{Text: "microscope", Difficulty: models.DifficultyHard, Hint1: "Used in science", Hint2: "Magnifies tiny things", Hint3: "Found in laboratories"},
	{Text: "helicopter", Difficulty: models.DifficultyHard, Hint1: "Flies with rotors", Hint2: "Hovers in the air", Hint3: "Used for rescues"},
	{Text: "newspaper", Difficulty: models.DifficultyHard, Hint1: "Daily news", Hint2: "Printed on paper", Hint3: "Has headlines"},
	{Text: "telescope", Difficulty: models.DifficultyHard, Hint1: "You see stars with it", Hint2: "Used in astronomy", Hint3: "Has lenses"},
	{Text: "volleyball", Difficulty: models.DifficultyHard, Hint1: "A team sport", Hint2: "Played over a net", Hint3: "Hit with the hands"},
	{Text: "flashlight", Difficulty: models.DifficultyHard, Hint1: "Gives off light", Hint2: "Used in the dark", Hint3: "Runs on batteries"},
}
