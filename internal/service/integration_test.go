package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/internal/repository"
	"github.com/arcadehub/tictactoe-backend/testing/suite"
)

// Runs a complete solo game against a real Redis container with the durable
// store alongside, end to end through the service layer.
func TestGameplay_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx, s := suite.New(t)

	sessionRepo := repository.NewSessionRepository(s.Storage)
	playerRepo := repository.NewPlayerRepository(s.Storage)
	historyRepo := repository.NewHistoryRepository(s.GameDB)

	locker := NewRoomLocker()
	playerService := NewPlayerService(playerRepo)
	roomService := NewRoomService(s.Logger, locker, sessionRepo, historyRepo, playerService)
	gameplayService := NewGameplayService(s.Logger, locker, sessionRepo, historyRepo, NewBotService())

	// Given: a connected player with a solo room
	player, err := playerService.GetOrCreatePlayer(ctx, "")
	require.NoError(t, err)

	room, err := roomService.CreateRoom(ctx, player.ID, 2)
	require.NoError(t, err)
	require.True(t, room.IsOngoing())

	// When: events keep coming with the lowest free tile; on the engine's
	// turn the tile is substituted, so one event lands one move and a full
	// board costs at most nine events
	board := room.Board
	finished := false
	for n := 0; n < 12; n++ {
		tile := -1
		for i, mark := range board {
			if mark == entity.EmptyCell {
				tile = i
				break
			}
		}
		require.GreaterOrEqual(t, tile, 0)

		result, err := gameplayService.HandleMove(ctx, room.Code, player.ID, tile)
		require.NoError(t, err)

		board = result.State.Board
		if result.State.Finished {
			finished = true
			assert.NotEmpty(t, result.Notice)
			break
		}
	}
	require.True(t, finished, "the game never finished")

	// Then: the durable record carries the outcome and the session is gone
	game, err := historyRepo.GetGameByCode(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, game.Finished)

	state, err := sessionRepo.Get(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, state.IsWaiting())

	// And: the finished game shows up in the player's history
	games, err := historyRepo.ListFinishedGamesByPlayer(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, room.Code, games[0].Code)
}
