package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
)

type historyProvider interface {
	ListJoinableGames(ctx context.Context) ([]*entity.Game, error)
	ListFinishedGamesByPlayer(ctx context.Context, playerID string) ([]*entity.Game, error)
	GetGameByCode(ctx context.Context, code string) (*entity.Game, error)
	ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error)
	PlayerScore(ctx context.Context, playerID string) (int, error)
}

type Server struct {
	logger  *slog.Logger
	history historyProvider
	origin  string
}

func New(logger *slog.Logger, history historyProvider, origin string) *Server {
	return &Server{
		logger:  logger,
		history: history,
		origin:  origin,
	}
}

func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", that.pingHandler)
	mux.HandleFunc("/games/available", that.availableGamesHandler)
	mux.HandleFunc("/history", that.historyHandler)
	mux.HandleFunc("/games/moves", that.movesHandler)
	mux.HandleFunc("/score", that.scoreHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{that.origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down http server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
