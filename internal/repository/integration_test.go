package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/testing/suite"
)

// These tests run against a real Redis container.

func TestSessionRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx, s := suite.New(t)

	sessionRepo := NewSessionRepository(s.Storage)

	// Given: a full game state
	state := entity.NewGameState("ABCD1234", 7, "p1", 0)
	state.PlayerOID = "p2"
	state.Status = entity.StatusOngoing
	require.NoError(t, state.ApplyMove(entity.PlayerX, 4))
	require.NoError(t, state.ApplyMove(entity.PlayerO, 0))

	// When: the state round-trips through Redis
	require.NoError(t, sessionRepo.Put(ctx, state))
	loaded, err := sessionRepo.Get(ctx, "ABCD1234")

	// Then: nothing is lost in serialization
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	// And: eviction leaves the default behind
	require.NoError(t, sessionRepo.Delete(ctx, "ABCD1234"))

	loaded, err = sessionRepo.Get(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.True(t, loaded.IsWaiting())
}

func TestPlayerRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx, s := suite.New(t)

	playerRepo := NewPlayerRepository(s.Storage)

	// Given: a seated player
	player := &entity.Player{ID: "p1", Mark: entity.PlayerX, RoomCode: "ABCD1234"}
	require.NoError(t, playerRepo.CreateOrUpdate(ctx, player))

	// When: the seat changes on a new game
	player.Mark = entity.PlayerO
	player.RoomCode = "EFGH5678"
	require.NoError(t, playerRepo.CreateOrUpdate(ctx, player))

	// Then: the latest record wins
	loaded, err := playerRepo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, player, loaded)
}
