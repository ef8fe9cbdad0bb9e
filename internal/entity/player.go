package entity

// Player is the ephemeral session record of a connected player. Identity is
// supplied by the auth collaborator; the engine trusts it.
type Player struct {
	ID       string `json:"id"`
	Mark     string `json:"mark,omitempty"`
	RoomCode string `json:"room_code,omitempty"`
}

func (that *Player) InRoom() bool {
	return that.RoomCode != ""
}
