package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/askarihq/patrolbot/internal/store"
)

// StartSweeper runs a background goroutine that periodically evicts idle
// sessions and clears their persisted conversation history. It stops when
// ctx is cancelled.
func StartSweeper(ctx context.Context, sessions *Store, repo store.Repository, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, sessions, repo, ttl)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, sessions *Store, repo store.Repository, ttl time.Duration) {
	evicted := sessions.EvictIdle(ttl)
	if len(evicted) == 0 {
		return
	}

	slog.Info("Session sweeper evicted idle sessions", "count", len(evicted))

	if repo == nil {
		return
	}
	for _, id := range evicted {
		if _, err := repo.ClearHistory(ctx, id); err != nil {
			slog.Warn("Session sweeper failed to clear history",
				"error", err,
				"conversation_id", id)
		}
	}
}
