package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcadehub/tictactoe-backend/internal/apperror"
	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/internal/pkg"
	"github.com/arcadehub/tictactoe-backend/internal/repository"
)

const codeGenerationAttempts = 5

var ErrCodeGeneration = errors.New("could not generate a unique room code")

// RoomService owns room lifecycle: create, join by code, join random.
type RoomService interface {
	CreateRoom(ctx context.Context, ownerID string, difficulty int) (*entity.GameState, error)
	JoinByCode(ctx context.Context, code, playerID string) (*entity.GameState, error)
	JoinRandom(ctx context.Context, playerID string) (*entity.GameState, error)
}

type roomService struct {
	logger *slog.Logger
	locker *RoomLocker

	sessionRepo   repository.SessionRepository
	historyRepo   repository.HistoryRepository
	playerService PlayerService
}

func NewRoomService(
	logger *slog.Logger,
	locker *RoomLocker,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
	playerService PlayerService,
) RoomService {
	return &roomService{
		logger:        logger,
		locker:        locker,
		sessionRepo:   sessionRepo,
		historyRepo:   historyRepo,
		playerService: playerService,
	}
}

// CreateRoom opens a room: a durable game row, a unique code and a fresh
// GameState with the owner in the X seat. A positive difficulty makes it a
// solo room; the AI takes the O seat and the game is playable immediately.
func (that *roomService) CreateRoom(ctx context.Context, ownerID string, difficulty int) (*entity.GameState, error) {
	log := that.logger.With("method", "CreateRoom")

	code, err := that.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	gameID, err := that.historyRepo.CreateGame(ctx, code, ownerID, difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to create durable game: %w", err)
	}

	state := entity.NewGameState(code, gameID, ownerID, difficulty)
	if err = that.sessionRepo.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to store game state: %w", err)
	}

	if err = that.seatPlayer(ctx, ownerID, code, entity.PlayerX); err != nil {
		return nil, err
	}

	log.Info("room created", "code", code, "difficulty", difficulty)

	return state, nil
}

// JoinByCode fills the second seat of the room identified by code.
func (that *roomService) JoinByCode(ctx context.Context, code, playerID string) (*entity.GameState, error) {
	unlock := that.locker.Lock(code)
	defer unlock()

	return that.claimSecondSeat(ctx, code, playerID)
}

// JoinRandom picks uniformly among open two-player rooms with one seated
// player and joins it.
func (that *roomService) JoinRandom(ctx context.Context, playerID string) (*entity.GameState, error) {
	game, err := that.historyRepo.PickRandomJoinableGame(ctx)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, apperror.ErrNoRoomAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick joinable game: %w", err)
	}

	if game.PlayerXID == playerID {
		return nil, apperror.ErrNoRoomAvailable
	}

	unlock := that.locker.Lock(game.Code)
	defer unlock()

	return that.claimSecondSeat(ctx, game.Code, playerID)
}

// claimSecondSeat does the guarded join. Callers must hold the room lock.
func (that *roomService) claimSecondSeat(ctx context.Context, code, playerID string) (*entity.GameState, error) {
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

	// rejoining a seat you already hold is a no-op
	if state.PlayerXID == playerID || state.PlayerOID == playerID {
		return state, nil
	}

	if state.IsSolo() || state.SeatCount() >= 2 {
		return nil, apperror.ErrRoomFull
	}

	if err = that.historyRepo.ClaimSecondSeat(ctx, game.ID, playerID); err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			return nil, apperror.ErrRoomFull
		}
		return nil, fmt.Errorf("failed to claim second seat: %w", err)
	}

	state.PlayerOID = playerID
	state.Status = entity.StatusOngoing
	if err = that.sessionRepo.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to store game state: %w", err)
	}

	if err = that.seatPlayer(ctx, playerID, code, entity.PlayerO); err != nil {
		return nil, err
	}

	that.logger.Info("player joined room", "code", code, "playerID", playerID)

	return state, nil
}

func (that *roomService) seatPlayer(ctx context.Context, playerID, code, mark string) error {
	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		player = &entity.Player{ID: playerID}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}

	player.RoomCode = code
	player.Mark = mark
	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to seat player: %w", err)
	}

	return nil
}

func (that *roomService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := pkg.GenerateRoomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}

		_, err = that.historyRepo.GetGameByCode(ctx, code)
		if errors.Is(err, repository.ErrGameNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check room code: %w", err)
		}
	}

	return "", ErrCodeGeneration
}
