package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mamad2002github/GuessWord/models"
)

func TestMaskWord(t *testing.T) {
	tests := []struct {
		name     string
		word     string
		correct  map[int]bool
		revealed map[int]bool
		want     string
	}{
		{"nothing guessed", "cake", nil, nil, "_ _ _ _"},
		{"one correct", "cake", map[int]bool{1: true}, nil, "_ A _ _"},
		{"correct plus private reveal", "cake", map[int]bool{1: true}, map[int]bool{3: true}, "_ A _ E"},
		{"fully solved", "cake", map[int]bool{0: true, 1: true, 2: true, 3: true}, nil, "C A K E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskWord(tt.word, tt.correct, tt.revealed); got != tt.want {
				t.Errorf("maskWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublicSnapshotHidesPrivateProgress(t *testing.T) {
	s := &GameService{}
	now := time.Now()
	p1 := &models.User{ID: 1, Username: "alice", Coins: 5}
	p2 := &models.User{ID: 2, Username: "bob", Coins: 9}
	p2ID := p2.ID
	current := p1.ID

	game := &models.Game{ID: "game-1", Player1ID: 1, Player2ID: &p2ID, Difficulty: "easy", Status: models.StatusActive, CreatedAt: now}
	state := &models.GameState{
		GameID:          game.ID,
		CurrentPlayerID: &current,
		GuessedLetters:  models.GuessLog{{Letter: "C", Position: 0, Correct: true, PlayerID: 1}},
		RevealedLetters: models.PlayerIntsMap{"2": {3}}, // bob privately bought position 3
		HintsUsed:       models.PlayerIntsMap{"2": {1, 2}},
		Player1Score:    20,
		Player2Score:    -20,
		Player1Time:     280,
		Player2Time:     300,
	}
	word := &models.Word{Text: "cake", Hint1: "h1", Hint2: "h2", Hint3: "h3"}

	snap := s.buildPublicSnapshot(game, state, word, p1, p2)

	if snap.Display != "C _ _ _" {
		t.Errorf("display = %q, want only publicly guessed letters", snap.Display)
	}
	if snap.WordLength != 4 {
		t.Errorf("word length = %d, want 4", snap.WordLength)
	}
	if snap.Player1.Score != 20 || snap.Player2.Score != -20 {
		t.Errorf("scores = %d/%d, want 20/-20", snap.Player1.Score, snap.Player2.Score)
	}

	// The serialized form must never contain the secret word, the private
	// reveal position or any hint text.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	body := strings.ToLower(string(data))
	for _, leak := range []string{"cake", "hint", "revealed"} {
		if strings.Contains(body, leak) {
			t.Errorf("public snapshot leaks %q: %s", leak, body)
		}
	}
}
