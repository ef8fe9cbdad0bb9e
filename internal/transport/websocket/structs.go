package websocket

import (
	"encoding/json"

	"github.com/arcadehub/tictactoe-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the shared payload shape for inbound and outbound messages;
// unused fields stay empty.
type Payload struct {
	Player     *entity.Player    `json:"player,omitempty"`
	Room       *entity.GameState `json:"room,omitempty"`
	Code       string            `json:"code,omitempty"`
	Difficulty *int              `json:"difficulty,omitempty"`
	Cell       *int              `json:"cell,omitempty"`
	Text       string            `json:"text,omitempty"`
	Message    *entity.Message   `json:"message,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Inbound actions.
const (
	actionConnect  = "connect"
	actionRoomNew  = "room:new"
	actionRoomJoin = "room:join"
	actionRoomTurn = "room:turn"
	actionChat     = "chat:message"
)

// Broadcast-only actions.
const (
	actionRoomJoined = "room:joined"
	actionRoomState  = "room:state"
	actionRoomOver   = "room:over"
)
