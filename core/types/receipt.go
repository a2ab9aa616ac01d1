package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Receipt records a committed operation: the request, the price it ran at,
// the token movements the host must execute and the emitted events.
type Receipt struct {
	ID          uuid.UUID         `json:"id"`
	Operation   Operation         `json:"operation"`
	Timestamp   time.Time         `json:"timestamp"`
	Price       *uint256.Int      `json:"price,omitempty"`
	Transfers   []TransferRequest `json:"transfers"`
	Events      []*Event          `json:"events"`
	StateDigest string            `json:"stateDigest"`
	Result      interface{}       `json:"result,omitempty"`
}
