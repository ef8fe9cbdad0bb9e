package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcadehub/tictactoe-backend/internal/repository"
)

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// availableGamesHandler lists open two-player rooms with a free seat.
func (that *Server) availableGamesHandler(w http.ResponseWriter, r *http.Request) {
	games, err := that.history.ListJoinableGames(r.Context())
	if err != nil {
		that.logger.Error("failed to list joinable games", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, games)
}

// historyHandler lists the finished games of one player.
func (that *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player query parameter is required", http.StatusBadRequest)
		return
	}

	games, err := that.history.ListFinishedGamesByPlayer(r.Context(), playerID)
	if err != nil {
		that.logger.Error("failed to list finished games", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, games)
}

// movesHandler returns the move log of one game for replay.
func (that *Server) movesHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code query parameter is required", http.StatusBadRequest)
		return
	}

	game, err := that.history.GetGameByCode(r.Context(), code)
	if errors.Is(err, repository.ErrGameNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		that.logger.Error("failed to get game by code", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	moves, err := that.history.ListMoves(r.Context(), game.ID)
	if err != nil {
		that.logger.Error("failed to list moves", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, moves)
}

func (that *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player query parameter is required", http.StatusBadRequest)
		return
	}

	points, err := that.history.PlayerScore(r.Context(), playerID)
	if err != nil {
		that.logger.Error("failed to get player score", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, map[string]int{"points": points})
}

func (that *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
