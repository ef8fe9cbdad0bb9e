package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcadehub/tictactoe-backend/internal/apperror"
	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/internal/repository"
)

// winPoints is the score bonus per difficulty level for a decisive win.
const winPoints = 100

// MoveResult carries the snapshot to broadcast after an accepted move, plus
// the terminal notice when the move ended the game.
type MoveResult struct {
	State  *entity.GameState
	Notice string
}

// GameplayService is the protocol-facing state machine: it validates and
// applies moves and chat events, triggers AI turns and persists terminal
// outcomes.
type GameplayService interface {
	HandleMove(ctx context.Context, code, playerID string, tile int) (*MoveResult, error)
	HandleChat(ctx context.Context, code, playerID, text string) (*entity.Message, error)
	RoomState(ctx context.Context, code string) (*entity.GameState, error)
}

type gameplayService struct {
	logger *slog.Logger
	locker *RoomLocker

	sessionRepo repository.SessionRepository
	historyRepo repository.HistoryRepository
	botService  BotService
}

func NewGameplayService(
	logger *slog.Logger,
	locker *RoomLocker,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
	botService BotService,
) GameplayService {
	return &gameplayService{
		logger:      logger,
		locker:      locker,
		sessionRepo: sessionRepo,
		historyRepo: historyRepo,
		botService:  botService,
	}
}

// HandleMove applies one inbound move event to the room, exactly one move
// per event. The whole read-modify-write runs under the room's mutex, so
// concurrent events for one room never interleave. When the O seat belongs
// to the AI, an event arriving on the AI's turn has its tile replaced by the
// searched one; the state after a human move, with the turn handed to the
// AI, is persisted and published like any other. Terminal outcomes are
// written through to the durable store before the room is evicted; the move
// record is appended only after the new state holds, so the log never keeps
// a move the live state lost.
func (that *gameplayService) HandleMove(ctx context.Context, code, playerID string, tile int) (*MoveResult, error) {
	log := that.logger.With("method", "HandleMove", "code", code)

	unlock := that.locker.Lock(code)
	defer unlock()

	game, err := that.historyRepo.GetGameByCode(ctx, code)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, apperror.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}

	if game.Finished {
		return nil, apperror.ErrGameFinished
	}

	state, err := that.sessionRepo.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	if err = state.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	moverID, appliedTile, err := that.applyOne(state, playerID, tile)
	if err != nil {
		return nil, err
	}

	result := &MoveResult{State: state}

	if !state.Finished {
		if err = that.sessionRepo.Put(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to store game state: %w", err)
		}

		if err = that.historyRepo.AppendMove(ctx, state.GameID, moverID, appliedTile); err != nil {
			return nil, fmt.Errorf("failed to append move record: %w", err)
		}

		return result, nil
	}

	// terminal transition: the durable record takes over, then the
	// ephemeral state is archived and evicted
	if err = that.historyRepo.AppendMove(ctx, state.GameID, moverID, appliedTile); err != nil {
		return nil, fmt.Errorf("failed to append move record: %w", err)
	}

	if err = that.finalize(ctx, state, game.Difficulty); err != nil {
		return nil, err
	}

	if err = that.sessionRepo.Delete(ctx, code); err != nil {
		log.Error("failed to evict finished room", "error", err)
	}

	result.Notice = fmt.Sprintf("Game over! Winner: %s", state.Winner)
	log.Info("game finished", "winner", state.Winner)

	return result, nil
}

// applyOne validates and applies a single move in memory and reports who
// moved where. On the AI's turn the submitted tile is discarded for the
// searched one and the move is attributed to nobody.
func (that *gameplayService) applyOne(state *entity.GameState, playerID string, tile int) (string, int, error) {
	mark := ""
	moverID := playerID

	if state.IsAITurn() {
		cell, err := that.botService.PickMove(state)
		if err != nil {
			return "", 0, fmt.Errorf("bot failed to pick a move: %w", err)
		}

		mark = entity.PlayerO
		moverID = ""
		tile = cell
	} else {
		var err error
		if mark, err = state.MarkOf(playerID); err != nil {
			return "", 0, err
		}
	}

	if err := state.ApplyMove(mark, tile); err != nil {
		return "", 0, err
	}

	return moverID, tile, nil
}

// finalize runs the durable terminal transition: declare the winner with the
// difficulty-scaled bonus, or declare a draw.
func (that *gameplayService) finalize(ctx context.Context, state *entity.GameState, difficulty int) error {
	if state.Winner == entity.WinnerDraw {
		if err := that.historyRepo.DeclareDraw(ctx, state.GameID); err != nil {
			return fmt.Errorf("failed to declare draw: %w", err)
		}
		return nil
	}

	winnerID := state.PlayerXID
	if state.Winner == entity.PlayerO {
		winnerID = state.PlayerOID
	}

	points := difficulty * winPoints
	if err := that.historyRepo.DeclareWinner(ctx, state.GameID, winnerID, points); err != nil {
		return fmt.Errorf("failed to declare winner: %w", err)
	}

	return nil
}

// HandleChat persists one chat line and returns it for broadcast. Chat stays
// open after the game finishes; only a missing room rejects.
func (that *gameplayService) HandleChat(ctx context.Context, code, playerID, text string) (*entity.Message, error) {
	game, err := that.historyRepo.GetGameByCode(ctx, code)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, apperror.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}

	message, err := that.historyRepo.AppendMessage(ctx, game.ID, playerID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return message, nil
}

// RoomState returns the live snapshot of an open room. A finished room has
// no live state anymore (the session was evicted at the terminal
// transition), so it rejects rather than serving a stale default.
func (that *gameplayService) RoomState(ctx context.Context, code string) (*entity.GameState, error) {
	game, err := that.historyRepo.GetGameByCode(ctx, code)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, apperror.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}

	if game.Finished {
		return nil, apperror.ErrGameFinished
	}

	state, err := that.sessionRepo.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	return state, nil
}
