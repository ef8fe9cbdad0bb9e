package entity

import (
	"fmt"

	"github.com/arcadehub/tictactoe-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"

	PlayerX = "X"
	PlayerO = "O"

	WinnerDraw = "Draw"

	EmptyCell = ""
)

// WinCombos are the eight board triples that decide a game.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// GameState is the live, per-room state of one match. It is owned by the
// session store for as long as the room is open; the durable record keeps
// only the final summary.
type GameState struct {
	Code       string    `json:"code"`
	GameID     int64     `json:"game_id"`
	Board      [9]string `json:"board"`
	Turn       string    `json:"turn"`
	Winner     string    `json:"winner"`
	Status     string    `json:"status"`
	Finished   bool      `json:"finished"`
	Difficulty int       `json:"difficulty"`
	PlayerXID  string    `json:"player_x_id"`
	PlayerOID  string    `json:"player_o_id,omitempty"`
}

// NewGameState returns the state of a freshly opened room: empty board,
// X to move. Rooms with a positive difficulty are solo rooms, the AI holds
// the O seat and play can start right away.
func NewGameState(code string, gameID int64, ownerID string, difficulty int) *GameState {
	state := &GameState{
		Code:       code,
		GameID:     gameID,
		Board:      [9]string{},
		Turn:       PlayerX,
		Status:     StatusWaiting,
		Difficulty: difficulty,
		PlayerXID:  ownerID,
	}

	if difficulty > 0 {
		state.Status = StatusOngoing
	}

	return state
}

// ApplyMove puts mark on cell, flips the turn and finalizes the state when
// the move ends the game. Illegal moves leave the state untouched.
func (that *GameState) ApplyMove(mark string, cell int) error {
	if that.Finished {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = mark
	that.Turn = toggleMark(mark)

	if winner := that.Outcome(); winner != "" {
		that.Winner = winner
		that.Status = StatusFinished
		that.Finished = true
		that.Turn = ""
	}

	return nil
}

// Outcome evaluates the board: the winning mark if a triple matches,
// WinnerDraw if the board is full without one, empty string otherwise.
func (that *GameState) Outcome() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range that.Board {
		if cell == EmptyCell {
			return ""
		}
	}

	return WinnerDraw
}

func (that *GameState) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *GameState) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *GameState) IsFinished() bool {
	return that.Status == StatusFinished
}

// IsSolo reports whether the AI holds the O seat.
func (that *GameState) IsSolo() bool {
	return !that.IsWaiting() && that.PlayerOID == ""
}

// IsAITurn reports whether the next move belongs to the AI seat.
func (that *GameState) IsAITurn() bool {
	return that.IsSolo() && that.Turn == PlayerO
}

func (that *GameState) ConfirmOngoingState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	default:
		return nil
	}
}

// MarkOf resolves a seated player's mark, apperror.ErrNotInRoom otherwise.
func (that *GameState) MarkOf(playerID string) (string, error) {
	switch {
	case playerID != "" && playerID == that.PlayerXID:
		return PlayerX, nil
	case playerID != "" && playerID == that.PlayerOID:
		return PlayerO, nil
	default:
		return "", apperror.ErrNotInRoom
	}
}

// SeatCount counts the human seats taken.
func (that *GameState) SeatCount() int {
	count := 0
	if that.PlayerXID != "" {
		count++
	}
	if that.PlayerOID != "" {
		count++
	}
	return count
}

func toggleMark(currentMark string) string {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
