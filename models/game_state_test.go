package models

import (
	"testing"
)

func TestGuessLogRoundTrip(t *testing.T) {
	log := GuessLog{
		{Letter: "C", Position: 0, Correct: true, PlayerID: 1},
		{Letter: "X", Position: 1, Correct: false, PlayerID: 2},
	}

	value, err := log.Value()
	if err != nil {
		t.Fatal(err)
	}

	var scanned GuessLog
	if err := scanned.Scan(value); err != nil {
		t.Fatal(err)
	}
	if len(scanned) != 2 || scanned[0].Letter != "C" || !scanned[0].Correct || scanned[1].PlayerID != 2 {
		t.Errorf("scanned = %+v", scanned)
	}
}

func TestGuessLogScanRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", `{{`},
		{"multi-letter entry", `[{"letter":"AB","position":0,"correct":true,"player_id":1}]`},
		{"negative position", `[{"letter":"A","position":-2,"correct":true,"player_id":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log GuessLog
			if err := log.Scan([]byte(tt.blob)); err == nil {
				t.Error("malformed blob accepted")
			}
		})
	}
}

func TestCorrectPositionsDeduplicates(t *testing.T) {
	log := GuessLog{
		{Letter: "C", Position: 0, Correct: true, PlayerID: 1},
		{Letter: "C", Position: 0, Correct: true, PlayerID: 2},
		{Letter: "A", Position: 1, Correct: true, PlayerID: 1},
		{Letter: "Z", Position: 2, Correct: false, PlayerID: 2},
	}
	positions := log.CorrectPositions()
	if len(positions) != 2 || !positions[0] || !positions[1] {
		t.Errorf("positions = %v, want {0,1}", positions)
	}
}

func TestPlayerIntsMap(t *testing.T) {
	m := PlayerIntsMap{}
	m.Append(7, 1)
	m.Append(7, 2)

	if got := m.ForPlayer(7); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("ForPlayer = %v, want [1 2]", got)
	}
	if got := m.ForPlayer(8); got != nil {
		t.Errorf("ForPlayer(8) = %v, want nil", got)
	}

	value, err := m.Value()
	if err != nil {
		t.Fatal(err)
	}
	var scanned PlayerIntsMap
	if err := scanned.Scan(value); err != nil {
		t.Fatal(err)
	}
	if got := scanned.ForPlayer(7); len(got) != 2 {
		t.Errorf("round-tripped map = %v", scanned)
	}
}

func TestGameHelpers(t *testing.T) {
	p2 := uint(2)
	game := &Game{Player1ID: 1, Player2ID: &p2}

	if !game.HasPlayer(1) || !game.HasPlayer(2) || game.HasPlayer(3) {
		t.Error("HasPlayer membership wrong")
	}
	if game.Opponent(1) != 2 || game.Opponent(2) != 1 {
		t.Error("Opponent lookup wrong")
	}

	open := &Game{Player1ID: 1}
	if open.Opponent(1) != 0 {
		t.Error("Opponent of solo game should be 0")
	}
}
