package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcadehub/tictactoe-backend/internal/service"
)

type handlerFunc func(ctx context.Context, conn *client, message *Message) error

// client wraps one WebSocket connection. gorilla allows a single concurrent
// writer, so every send goes through the client's mutex.
type client struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	playerID string
}

func (that *client) send(message *Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Server is the WebSocket transport: it upgrades connections, dispatches
// inbound actions to the engine and delivers room-scoped broadcasts.
type Server struct {
	logger *slog.Logger

	playerService   service.PlayerService
	roomService     service.RoomService
	gameplayService service.GameplayService

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func New(
	logger *slog.Logger,
	playerService service.PlayerService,
	roomService service.RoomService,
	gameplayService service.GameplayService,
) *Server {
	server := &Server{
		logger:          logger,
		playerService:   playerService,
		roomService:     roomService,
		gameplayService: gameplayService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
		rooms:    make(map[string]map[*client]struct{}),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionRoomNew] = server.handleNewRoom
	server.handlers[actionRoomJoin] = server.handleJoinRoom
	server.handlers[actionRoomTurn] = server.handleRoomTurn
	server.handlers[actionChat] = server.handleChatMessage

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	wsConn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := &client{conn: wsConn}
	defer that.disconnect(conn)

	log.Info("WebSocket connection established")

	for {
		var message Message
		if err = wsConn.ReadJSON(&message); err != nil {
			log.Info("connection closed", "error", err)
			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// joinRoom adds the connection to the room's broadcast group.
func (that *Server) joinRoom(code string, conn *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	group, ok := that.rooms[code]
	if !ok {
		group = make(map[*client]struct{})
		that.rooms[code] = group
	}
	group[conn] = struct{}{}
}

// broadcast sends one payload to every member of the room.
func (that *Server) broadcast(code, action string, payload Payload) {
	log := that.logger.With("method", "broadcast", "code", code, "action", action)

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal payload", "error", err)
		return
	}

	message := &Message{Action: action, Payload: raw}

	that.mu.RLock()
	members := make([]*client, 0, len(that.rooms[code]))
	for member := range that.rooms[code] {
		members = append(members, member)
	}
	that.mu.RUnlock()

	for _, member := range members {
		if err = member.send(message); err != nil {
			log.Error("failed to deliver broadcast", "error", err)
		}
	}
}

func (that *Server) disconnect(conn *client) {
	log := that.logger.With("method", "disconnect")

	that.mu.Lock()
	for code, group := range that.rooms {
		delete(group, conn)
		if len(group) == 0 {
			delete(that.rooms, code)
		}
	}
	that.mu.Unlock()

	if err := conn.conn.Close(); err != nil {
		log.Debug("failed to close connection", "error", err)
	}

	if conn.playerID != "" {
		log.Info("player disconnected", "playerID", conn.playerID)
	}
}

// sendMessage sends one payload to a single connection.
func (that *Server) sendMessage(conn *client, action string, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return conn.send(&Message{Action: action, Payload: raw})
}

// sendErrorResponse notifies the requester only; errors are never broadcast.
func (that *Server) sendErrorResponse(conn *client, action, errorMsg string) error {
	if err := that.sendMessage(conn, action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
