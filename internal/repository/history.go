package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrSeatTaken       = errors.New("second seat is already taken")
	ErrAlreadyFinished = errors.New("game is already marked finished")
)

// HistoryRepository is the durable system of record: finalized games, the
// move log, chat messages and player scores. Rows are append-only except for
// the single open→finished transition on a game.
type HistoryRepository interface {
	CreateGame(ctx context.Context, code, ownerID string, difficulty int) (int64, error)
	GetGameByCode(ctx context.Context, code string) (*entity.Game, error)
	ListJoinableGames(ctx context.Context) ([]*entity.Game, error)
	PickRandomJoinableGame(ctx context.Context) (*entity.Game, error)
	ClaimSecondSeat(ctx context.Context, gameID int64, playerID string) error

	AppendMove(ctx context.Context, gameID int64, playerID string, tile int) error
	ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error)
	DeclareWinner(ctx context.Context, gameID int64, winnerID string, points int) error
	DeclareDraw(ctx context.Context, gameID int64) error

	AppendMessage(ctx context.Context, gameID int64, playerID, body string) (*entity.Message, error)

	ListFinishedGamesByPlayer(ctx context.Context, playerID string) ([]*entity.Game, error)
	PlayerScore(ctx context.Context, playerID string) (int, error)
}

type dbHistory struct {
	conn *sql.DB
}

func NewHistoryRepository(conn *sql.DB) HistoryRepository {
	return &dbHistory{
		conn: conn,
	}
}

func (that *dbHistory) CreateGame(ctx context.Context, code, ownerID string, difficulty int) (int64, error) {
	result, err := that.conn.ExecContext(ctx,
		`INSERT INTO games (code, difficulty, player_x_id) VALUES (?, ?, ?)`,
		code, difficulty, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create game: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new game id: %w", err)
	}

	return id, nil
}

func (that *dbHistory) GetGameByCode(ctx context.Context, code string) (*entity.Game, error) {
	row := that.conn.QueryRowContext(ctx,
		`SELECT id, code, difficulty, finished, winner_id, player_x_id, player_o_id, created_at
		 FROM games WHERE code = ?`, code)

	return scanGame(row)
}

func (that *dbHistory) ListJoinableGames(ctx context.Context) ([]*entity.Game, error) {
	rows, err := that.conn.QueryContext(ctx,
		`SELECT id, code, difficulty, finished, winner_id, player_x_id, player_o_id, created_at
		 FROM games
		 WHERE finished = 0 AND difficulty = 0 AND player_o_id IS NULL
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list joinable games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// PickRandomJoinableGame selects uniformly among open two-player rooms with
// exactly one seated player.
func (that *dbHistory) PickRandomJoinableGame(ctx context.Context) (*entity.Game, error) {
	row := that.conn.QueryRowContext(ctx,
		`SELECT id, code, difficulty, finished, winner_id, player_x_id, player_o_id, created_at
		 FROM games
		 WHERE finished = 0 AND difficulty = 0 AND player_o_id IS NULL
		 ORDER BY RANDOM() LIMIT 1`)

	return scanGame(row)
}

// ClaimSecondSeat fills the O seat. The WHERE guard keeps the claim atomic
// at the row level: a seat claimed concurrently surfaces as ErrSeatTaken.
func (that *dbHistory) ClaimSecondSeat(ctx context.Context, gameID int64, playerID string) error {
	result, err := that.conn.ExecContext(ctx,
		`UPDATE games SET player_o_id = ? WHERE id = ? AND player_o_id IS NULL AND finished = 0`,
		playerID, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to claim seat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read claim result: %w", err)
	}

	if affected == 0 {
		return ErrSeatTaken
	}

	return nil
}

func (that *dbHistory) AppendMove(ctx context.Context, gameID int64, playerID string, tile int) error {
	_, err := that.conn.ExecContext(ctx,
		`INSERT INTO moves (game_id, player_id, tile_number) VALUES (?, ?, ?)`,
		gameID, nullableID(playerID), tile,
	)
	if err != nil {
		return fmt.Errorf("failed to append move: %w", err)
	}

	return nil
}

// ListMoves returns the move log of a game in play order. An AI move carries
// an empty PlayerID.
func (that *dbHistory) ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error) {
	rows, err := that.conn.QueryContext(ctx,
		`SELECT id, game_id, player_id, tile_number, created_at
		 FROM moves WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", err)
	}
	defer rows.Close()

	var moves []*entity.Move
	for rows.Next() {
		move := &entity.Move{}

		var playerID sql.NullString
		if err = rows.Scan(&move.ID, &move.GameID, &playerID, &move.Tile, &move.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan move row: %w", err)
		}

		move.PlayerID = playerID.String
		moves = append(moves, move)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moves: %w", err)
	}

	return moves, nil
}

// DeclareWinner runs the terminal transition for a decisive game: the game
// row flips to finished with the winner attributed, and a human winner is
// credited points in the same transaction. An empty winnerID means the AI
// won; the row still finishes, nothing is scored.
func (that *dbHistory) DeclareWinner(ctx context.Context, gameID int64, winnerID string, points int) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint: errcheck // rollback after commit is a no-op

	if err = finishGame(ctx, tx, gameID, nullableID(winnerID)); err != nil {
		return err
	}

	if winnerID != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scores (player_id, points) VALUES (?, ?)
			 ON CONFLICT(player_id) DO UPDATE SET points = points + excluded.points`,
			winnerID, points,
		)
		if err != nil {
			return fmt.Errorf("failed to credit winner score: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit winner declaration: %w", err)
	}

	return nil
}

// DeclareDraw finishes the game row without a winner and without scoring.
func (that *dbHistory) DeclareDraw(ctx context.Context, gameID int64) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint: errcheck // rollback after commit is a no-op

	if err = finishGame(ctx, tx, gameID, sql.NullString{}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draw declaration: %w", err)
	}

	return nil
}

func (that *dbHistory) AppendMessage(ctx context.Context, gameID int64, playerID, body string) (*entity.Message, error) {
	result, err := that.conn.ExecContext(ctx,
		`INSERT INTO messages (game_id, player_id, body) VALUES (?, ?, ?)`,
		gameID, playerID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new message id: %w", err)
	}

	message := &entity.Message{}
	row := that.conn.QueryRowContext(ctx,
		`SELECT id, game_id, player_id, body, created_at FROM messages WHERE id = ?`, id)
	if err = row.Scan(&message.ID, &message.GameID, &message.PlayerID, &message.Body, &message.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read back message: %w", err)
	}

	return message, nil
}

func (that *dbHistory) ListFinishedGamesByPlayer(ctx context.Context, playerID string) ([]*entity.Game, error) {
	rows, err := that.conn.QueryContext(ctx,
		`SELECT id, code, difficulty, finished, winner_id, player_x_id, player_o_id, created_at
		 FROM games
		 WHERE finished = 1 AND (player_x_id = ? OR player_o_id = ?)
		 ORDER BY created_at DESC`, playerID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (that *dbHistory) PlayerScore(ctx context.Context, playerID string) (int, error) {
	var points int

	err := that.conn.QueryRowContext(ctx,
		`SELECT points FROM scores WHERE player_id = ?`, playerID).Scan(&points)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get player score: %w", err)
	}

	return points, nil
}

func finishGame(ctx context.Context, tx *sql.Tx, gameID int64, winnerID sql.NullString) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE games SET finished = 1, winner_id = ? WHERE id = ? AND finished = 0`,
		winnerID, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read finish result: %w", err)
	}

	if affected == 0 {
		return ErrAlreadyFinished
	}

	return nil
}

func scanGame(row *sql.Row) (*entity.Game, error) {
	game := &entity.Game{}

	var winnerID, playerOID sql.NullString
	err := row.Scan(&game.ID, &game.Code, &game.Difficulty, &game.Finished,
		&winnerID, &game.PlayerXID, &playerOID, &game.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}

	game.WinnerID = winnerID.String
	game.PlayerOID = playerOID.String

	return game, nil
}

func collectGames(rows *sql.Rows) ([]*entity.Game, error) {
	var games []*entity.Game

	for rows.Next() {
		game := &entity.Game{}

		var winnerID, playerOID sql.NullString
		if err := rows.Scan(&game.ID, &game.Code, &game.Difficulty, &game.Finished,
			&winnerID, &game.PlayerXID, &playerOID, &game.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

		game.WinnerID = winnerID.String
		game.PlayerOID = playerOID.String
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return games, nil
}

func nullableID(id string) sql.NullString {
	if id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id, Valid: true}
}
