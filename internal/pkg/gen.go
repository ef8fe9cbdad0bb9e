package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 8
)

// GenerateRoomCode returns an 8-character code drawn from uppercase letters
// and digits. Uniqueness among open rooms is the caller's job (regenerate on
// collision against the durable store).
func GenerateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	alphabetSize := big.NewInt(int64(len(roomCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// GenerateNewSessionID - generates a new unique player session ID.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
