package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
	"github.com/arcadehub/tictactoe-backend/internal/repository"
	"github.com/arcadehub/tictactoe-backend/internal/repository/storage"
	"github.com/arcadehub/tictactoe-backend/internal/service"
)

const readWait = 5 * time.Second

func newTestServer(t *testing.T) (*httptest.Server, repository.HistoryRepository) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	// an in-memory database lives per connection, pin the pool to one
	store.Connection.SetMaxOpenConns(1)

	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	sessionRepo := repository.NewSessionRepository(redisClient)
	playerRepo := repository.NewPlayerRepository(redisClient)
	historyRepo := repository.NewHistoryRepository(store.Connection)

	locker := service.NewRoomLocker()
	playerService := service.NewPlayerService(playerRepo)
	botService := service.NewBotService()
	roomService := service.NewRoomService(logger, locker, sessionRepo, historyRepo, playerService)
	gameplayService := service.NewGameplayService(logger, locker, sessionRepo, historyRepo, botService)

	server := New(logger, playerService, roomService, gameplayService)

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.serveConnection(r.Context(), w, r)
	}))
	t.Cleanup(httpServer.Close)

	return httpServer, historyRepo
}

func dial(t *testing.T, httpServer *httptest.Server) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http")

	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func sendAction(t *testing.T, conn *gorilla.Conn, action string, payload Payload) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(&Message{Action: action, Payload: raw}))
}

func readAction(t *testing.T, conn *gorilla.Conn) (string, *Payload) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readWait)))

	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	payload := &Payload{}
	if len(message.Payload) > 0 {
		require.NoError(t, json.Unmarshal(message.Payload, payload))
	}

	return message.Action, payload
}

// connect performs the connect handshake and returns the issued player.
func connect(t *testing.T, conn *gorilla.Conn) *entity.Player {
	t.Helper()

	sendAction(t, conn, actionConnect, Payload{})

	action, payload := readAction(t, conn)
	require.Equal(t, actionConnect, action)
	require.NotNil(t, payload.Player)
	require.NotEmpty(t, payload.Player.ID)

	return payload.Player
}

func TestServer_ConnectIssuesIdentity(t *testing.T) {
	httpServer, _ := newTestServer(t)

	// When: two clients connect without an identity
	first := connect(t, dial(t, httpServer))
	second := connect(t, dial(t, httpServer))

	// Then: each gets a distinct player id
	assert.NotEqual(t, first.ID, second.ID)
}

func TestServer_TwoPlayerGameOverWire(t *testing.T) {
	httpServer, _ := newTestServer(t)

	connA := dial(t, httpServer)
	connB := dial(t, httpServer)

	playerA := connect(t, connA)
	playerB := connect(t, connB)

	// Given: A opens a two-player room
	sendAction(t, connA, actionRoomNew, Payload{})

	action, payload := readAction(t, connA)
	require.Equal(t, actionRoomNew, action)
	require.NotNil(t, payload.Room)
	require.Len(t, payload.Room.Code, 8)
	assert.True(t, payload.Room.IsWaiting())
	code := payload.Room.Code

	// When: B joins by code
	sendAction(t, connB, actionRoomJoin, Payload{Code: code})

	// Then: both members receive the join notice and the snapshot
	for _, conn := range []*gorilla.Conn{connA, connB} {
		action, payload = readAction(t, conn)
		require.Equal(t, actionRoomJoined, action)
		assert.Equal(t, code, payload.Code)
		assert.Contains(t, payload.Notice, playerB.ID)

		action, payload = readAction(t, conn)
		require.Equal(t, actionRoomState, action)
		require.NotNil(t, payload.Room)
		assert.True(t, payload.Room.IsOngoing())
		assert.Equal(t, playerA.ID, payload.Room.PlayerXID)
		assert.Equal(t, playerB.ID, payload.Room.PlayerOID)
	}

	// When: A plays the center
	cell := 4
	sendAction(t, connA, actionRoomTurn, Payload{Code: code, Cell: &cell})

	// Then: both members observe the applied move
	for _, conn := range []*gorilla.Conn{connA, connB} {
		action, payload = readAction(t, conn)
		require.Equal(t, actionRoomState, action)
		require.NotNil(t, payload.Room)
		assert.Equal(t, entity.PlayerX, payload.Room.Board[4])
		assert.Equal(t, entity.PlayerO, payload.Room.Turn)
	}

	// When: B answers on an occupied tile
	sendAction(t, connB, actionRoomTurn, Payload{Code: code, Cell: &cell})

	// Then: only B is told, A sees nothing
	action, payload = readAction(t, connB)
	require.Equal(t, actionRoomTurn, action)
	assert.NotEmpty(t, payload.Error)

	// When: A sends a chat line
	sendAction(t, connA, actionChat, Payload{Code: code, Text: "your move"})

	// Then: the line reaches the whole room, not only the sender
	for _, conn := range []*gorilla.Conn{connA, connB} {
		action, payload = readAction(t, conn)
		require.Equal(t, actionChat, action)
		require.NotNil(t, payload.Message)
		assert.Equal(t, playerA.ID, payload.Message.PlayerID)
		assert.Equal(t, "your move", payload.Message.Body)
	}
}

func TestServer_SoloRoomFinishBroadcastsGameOver(t *testing.T) {
	httpServer, _ := newTestServer(t)

	conn := dial(t, httpServer)
	connect(t, conn)

	// Given: a solo room against the engine
	difficulty := 1
	sendAction(t, conn, actionRoomNew, Payload{Difficulty: &difficulty})

	action, payload := readAction(t, conn)
	require.Equal(t, actionRoomNew, action)
	require.NotNil(t, payload.Room)
	require.True(t, payload.Room.IsOngoing())
	code := payload.Room.Code

	// When: the human keeps taking the lowest free tile and nudges the
	// engine when it is to move. A filled board takes nine moves, so the
	// game terminates well inside twelve events.
	board := payload.Room.Board
	for n := 0; n < 12; n++ {
		tile := -1
		for i, mark := range board {
			if mark == entity.EmptyCell {
				tile = i
				break
			}
		}
		require.GreaterOrEqual(t, tile, 0, "no free tile left in an unfinished game")

		sendAction(t, conn, actionRoomTurn, Payload{Code: code, Cell: &tile})

		action, payload = readAction(t, conn)
		require.Equal(t, actionRoomState, action)
		require.NotNil(t, payload.Room)
		board = payload.Room.Board

		if payload.Room.Finished {
			// Then: the terminal notice follows the last snapshot
			action, payload = readAction(t, conn)
			require.Equal(t, actionRoomOver, action)
			assert.Equal(t, code, payload.Code)
			assert.Contains(t, payload.Notice, "Game over!")
			return
		}
	}

	t.Fatal("the game never finished")
}

func TestServer_SoloRoomOneMovePerEvent(t *testing.T) {
	httpServer, _ := newTestServer(t)

	conn := dial(t, httpServer)
	connect(t, conn)

	difficulty := 1
	sendAction(t, conn, actionRoomNew, Payload{Difficulty: &difficulty})

	action, payload := readAction(t, conn)
	require.Equal(t, actionRoomNew, action)
	require.NotNil(t, payload.Room)
	code := payload.Room.Code

	// When: the human plays the center
	cell := 4
	sendAction(t, conn, actionRoomTurn, Payload{Code: code, Cell: &cell})

	// Then: the broadcast snapshot holds only the human's mark, with the
	// engine to move next
	action, payload = readAction(t, conn)
	require.Equal(t, actionRoomState, action)
	require.NotNil(t, payload.Room)
	assert.Equal(t, entity.PlayerX, payload.Room.Board[4])
	assert.Equal(t, entity.PlayerO, payload.Room.Turn)
	for i, mark := range payload.Room.Board {
		if i != 4 {
			assert.Equal(t, entity.EmptyCell, mark)
		}
	}

	// When: the next event arrives while the engine is to move
	sendAction(t, conn, actionRoomTurn, Payload{Code: code, Cell: &cell})

	// Then: the engine's answer lands and the turn returns to the human
	action, payload = readAction(t, conn)
	require.Equal(t, actionRoomState, action)
	require.NotNil(t, payload.Room)
	assert.Equal(t, entity.PlayerO, payload.Room.Board[0])
	assert.Equal(t, entity.PlayerX, payload.Room.Turn)
}

func TestServer_ReconnectToFinishedRoom(t *testing.T) {
	httpServer, historyRepo := newTestServer(t)

	conn := dial(t, httpServer)
	player := connect(t, conn)

	// Given: the player sits in a room whose game has since closed
	sendAction(t, conn, actionRoomNew, Payload{})

	action, payload := readAction(t, conn)
	require.Equal(t, actionRoomNew, action)
	require.NotNil(t, payload.Room)
	require.NoError(t, historyRepo.DeclareDraw(context.Background(), payload.Room.GameID))

	// When: the player reconnects with their old identity
	fresh := dial(t, httpServer)
	sendAction(t, fresh, actionConnect, Payload{Player: &entity.Player{ID: player.ID}})

	// Then: no stale waiting room is served back
	action, payload = readAction(t, fresh)
	require.Equal(t, actionConnect, action)
	require.NotNil(t, payload.Player)
	assert.Equal(t, player.ID, payload.Player.ID)
	assert.Nil(t, payload.Room)
	assert.Empty(t, payload.Player.RoomCode)
}
