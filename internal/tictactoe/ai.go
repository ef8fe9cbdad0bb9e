package tictactoe

import "github.com/arcadehub/tictactoe-backend/internal/entity"

const (
	scoreWin  = 1
	scoreLoss = -1
	scoreDraw = 0
)

// BestMove runs an exhaustive minimax over the empty cells and returns the
// cell index the AI should take. Ties break toward the lowest index, so the
// result is deterministic for a given board. The scores carry no depth
// discount: a win in four plies counts the same as a win in two, so the AI
// is unbeatable but not always in a hurry.
func BestMove(board [9]string, aiMark, playerMark string) int {
	bestScore := scoreLoss - 1
	bestMove := -1

	for i := range board {
		if board[i] != entity.EmptyCell {
			continue
		}

		board[i] = aiMark
		score := minimax(board, false, aiMark, playerMark)
		board[i] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			bestMove = i
		}
	}

	return bestMove
}

func minimax(board [9]string, maximizing bool, aiMark, playerMark string) int {
	switch outcome(board) {
	case aiMark:
		return scoreWin
	case playerMark:
		return scoreLoss
	case entity.WinnerDraw:
		return scoreDraw
	}

	if maximizing {
		best := scoreLoss - 1
		for i := range board {
			if board[i] != entity.EmptyCell {
				continue
			}

			board[i] = aiMark
			if score := minimax(board, false, aiMark, playerMark); score > best {
				best = score
			}
			board[i] = entity.EmptyCell
		}
		return best
	}

	best := scoreWin + 1
	for i := range board {
		if board[i] != entity.EmptyCell {
			continue
		}

		board[i] = playerMark
		if score := minimax(board, true, aiMark, playerMark); score < best {
			best = score
		}
		board[i] = entity.EmptyCell
	}
	return best
}

func outcome(board [9]string) string {
	state := entity.GameState{Board: board}
	return state.Outcome()
}
