package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
)

const sessionKeyPrefix = "room:"

// SessionRepository is the ephemeral state store: one GameState per open
// room, shared between server instances through Redis.
type SessionRepository interface {
	Get(ctx context.Context, code string) (*entity.GameState, error)
	Put(ctx context.Context, state *entity.GameState) error
	Delete(ctx context.Context, code string) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

// Get returns the live state for code. A room without stored state yields a
// freshly initialized default, never an error.
func (that *dbSession) Get(ctx context.Context, code string) (*entity.GameState, error) {
	response, err := that.client.Get(ctx, sessionKeyPrefix+code).Result()

	if errors.Is(err, redis.Nil) {
		return entity.NewGameState(code, 0, "", 0), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	var state entity.GameState
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return &state, nil
}

func (that *dbSession) Put(ctx context.Context, state *entity.GameState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal game state: %w", err)
	}

	if err = that.client.Set(ctx, sessionKeyPrefix+state.Code, stateJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game state: %w", err)
	}

	return nil
}

func (that *dbSession) Delete(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, sessionKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete game state: %w", err)
	}

	return nil
}
