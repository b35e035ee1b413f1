// Package store provides conversation history persistence.
package store

import (
	"context"

	"github.com/askarihq/patrolbot/internal/domain"
)

// Repository defines the interface for persisting conversation history.
type Repository interface {
	// SaveMessage appends one message to a conversation's history.
	SaveMessage(ctx context.Context, conversationID, role, content string) error

	// History returns the most recent messages for a conversation in
	// chronological order, up to limit.
	History(ctx context.Context, conversationID string, limit int) ([]domain.StoredMessage, error)

	// ClearHistory removes all history for a conversation and returns
	// the number of rows deleted.
	ClearHistory(ctx context.Context, conversationID string) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
