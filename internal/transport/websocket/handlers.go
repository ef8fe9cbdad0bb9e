package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arcadehub/tictactoe-backend/internal/apperror"
	"github.com/arcadehub/tictactoe-backend/internal/entity"
)

func (that *Server) handleConnect(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	var playerID string
	if payloadReq.Player != nil {
		playerID = payloadReq.Player.ID
	}

	player, err := that.playerService.GetOrCreatePlayer(ctx, playerID)
	if err != nil {
		log.Error("failed to get or create player", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to connect player")
	}

	conn.playerID = player.ID

	payloadResp := Payload{Player: player}

	// a reconnecting player rejoins their room's broadcast group and gets
	// the live snapshot back; a seat in a room that finished or vanished
	// since the last connection is dropped instead of served stale
	if player.InRoom() {
		state, stateErr := that.gameplayService.RoomState(ctx, player.RoomCode)
		switch {
		case stateErr == nil:
			that.joinRoom(player.RoomCode, conn)
			payloadResp.Room = state
		case errors.Is(stateErr, apperror.ErrRoomNotFound),
			errors.Is(stateErr, apperror.ErrGameFinished):
			player.RoomCode = ""
			player.Mark = ""
			if updateErr := that.playerService.UpdatePlayer(ctx, player); updateErr != nil {
				log.Error("failed to clear stale seat", "playerID", player.ID, "error", updateErr)
			}
		default:
			log.Error("failed to restore room state", "code", player.RoomCode, "error", stateErr)
		}
	}

	if err = that.sendMessage(conn, msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("player connected", "playerID", player.ID)

	return nil
}

func (that *Server) handleNewRoom(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleNewRoom")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	playerID := that.requesterID(conn, payloadReq)
	if playerID == "" {
		log.Error("player is missing in payload")
		return that.sendErrorResponse(conn, msg.Action, "player is required")
	}

	difficulty := 0
	if payloadReq.Difficulty != nil {
		difficulty = *payloadReq.Difficulty
	}

	state, err := that.roomService.CreateRoom(ctx, playerID, difficulty)
	if err != nil {
		log.Error("failed to create room", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to create a new room")
	}

	that.joinRoom(state.Code, conn)
	that.broadcast(state.Code, msg.Action, Payload{Room: state})

	log.Info("room created", "code", state.Code, "playerID", playerID)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleJoinRoom")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	playerID := that.requesterID(conn, payloadReq)
	if playerID == "" {
		log.Error("player is missing in payload")
		return that.sendErrorResponse(conn, msg.Action, "player is required")
	}

	state, err := that.joinRoomByPayload(ctx, payloadReq, playerID)

	switch {
	case errors.Is(err, apperror.ErrRoomNotFound),
		errors.Is(err, apperror.ErrGameFinished):
		return that.sendErrorResponse(conn, msg.Action, "room not found or already finished")
	case errors.Is(err, apperror.ErrRoomFull):
		return that.sendErrorResponse(conn, msg.Action, "room is already full")
	case errors.Is(err, apperror.ErrNoRoomAvailable):
		return that.sendErrorResponse(conn, msg.Action, "no room available to join")
	case err != nil:
		log.Error("failed to join room", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to join room")
	}

	that.joinRoom(state.Code, conn)
	that.broadcast(state.Code, actionRoomJoined, Payload{
		Code:   state.Code,
		Notice: fmt.Sprintf("%s has joined the room %s", playerID, state.Code),
	})
	that.broadcast(state.Code, actionRoomState, Payload{Room: state})

	log.Info("player joined room", "code", state.Code, "playerID", playerID)

	return nil
}

func (that *Server) joinRoomByPayload(ctx context.Context, payloadReq *Payload, playerID string) (*entity.GameState, error) {
	if payloadReq.Code != "" {
		return that.roomService.JoinByCode(ctx, payloadReq.Code, playerID)
	}

	return that.roomService.JoinRandom(ctx, playerID)
}

func (that *Server) handleRoomTurn(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleRoomTurn")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	playerID := that.requesterID(conn, payloadReq)
	if payloadReq.Code == "" || payloadReq.Cell == nil {
		log.Error("room code or cell is missing in payload")
		return that.sendErrorResponse(conn, msg.Action, "room code and cell are required")
	}

	result, err := that.gameplayService.HandleMove(ctx, payloadReq.Code, playerID, *payloadReq.Cell)

	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return that.sendErrorResponse(conn, msg.Action, "room not found")
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrNotInRoom):
		return that.sendErrorResponse(conn, msg.Action, err.Error())
	case err != nil:
		log.Error("failed to make turn", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to make turn")
	}

	that.broadcast(payloadReq.Code, actionRoomState, Payload{Room: result.State})

	if result.Notice != "" {
		that.broadcast(payloadReq.Code, actionRoomOver, Payload{
			Code:   payloadReq.Code,
			Notice: result.Notice,
		})
	}

	log.Info("turn handled", "code", payloadReq.Code, "playerID", playerID)

	return nil
}

func (that *Server) handleChatMessage(ctx context.Context, conn *client, msg *Message) error {
	log := that.logger.With("method", "handleChatMessage")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		return err
	}

	playerID := that.requesterID(conn, payloadReq)
	if payloadReq.Code == "" || payloadReq.Text == "" {
		log.Error("room code or text is missing in payload")
		return that.sendErrorResponse(conn, msg.Action, "room code and text are required")
	}

	message, err := that.gameplayService.HandleChat(ctx, payloadReq.Code, playerID, payloadReq.Text)

	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return that.sendErrorResponse(conn, msg.Action, "room not found")
	case err != nil:
		log.Error("failed to handle chat message", "error", err)
		return that.sendErrorResponse(conn, msg.Action, "failed to send message")
	}

	that.broadcast(payloadReq.Code, actionChat, Payload{Message: message})

	return nil
}

// requesterID prefers the identity bound at connect time over the payload.
func (that *Server) requesterID(conn *client, payloadReq *Payload) string {
	if conn.playerID != "" {
		return conn.playerID
	}

	if payloadReq.Player != nil {
		return payloadReq.Player.ID
	}

	return ""
}

func decodePayload(msg *Message) (*Payload, error) {
	payloadReq := &Payload{}

	if len(msg.Payload) == 0 {
		return payloadReq, nil
	}

	if err := json.Unmarshal(msg.Payload, payloadReq); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payloadReq, nil
}
