// Package session keeps per-conversation history for the shell.
package session

import (
	"context"

	"github.com/google/uuid"

	agent "github.com/Protocol-Lattice/research-agent"
)

// Store holds the ordered turns of each conversation.
type Store interface {
	History(ctx context.Context, id string) ([]agent.Message, error)
	Append(ctx context.Context, id string, msg agent.Message) error
	Clear(ctx context.Context, id string) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
