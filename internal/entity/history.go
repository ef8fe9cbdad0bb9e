package entity

import "time"

// Game is the durable record of a match. It is created open and mutated
// exactly once, by the terminal transition.
type Game struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Difficulty int       `json:"difficulty"`
	Finished   bool      `json:"finished"`
	WinnerID   string    `json:"winner_id,omitempty"`
	PlayerXID  string    `json:"player_x_id"`
	PlayerOID  string    `json:"player_o_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Move is the write-once record of one accepted move. PlayerID is empty for
// moves the AI made.
type Move struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	PlayerID  string    `json:"player_id,omitempty"`
	Tile      int       `json:"tile_number"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one durable chat line scoped to a game.
type Message struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	PlayerID  string    `json:"player_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
