package service

import (
	"errors"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/internal/tictactoe"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// BotService picks the move for the AI seat.
type BotService interface {
	PickMove(state *entity.GameState) (int, error)
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

// PickMove runs the exhaustive search for the side whose turn it is. The
// board is bounded at nine cells, so the search always completes within the
// move-handling step.
func (that *botService) PickMove(state *entity.GameState) (int, error) {
	aiMark := state.Turn
	playerMark := entity.PlayerX
	if aiMark == entity.PlayerX {
		playerMark = entity.PlayerO
	}

	cell := tictactoe.BestMove(state.Board, aiMark, playerMark)
	if cell < 0 {
		return 0, ErrNoAvailableMoves
	}

	return cell, nil
}
