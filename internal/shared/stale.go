package shared

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// StaleChannel is the pub/sub channel carrying stale view paths.
const StaleChannel = "views:stale"

// StaleNotifier tells the presentation layer that a listing path must be
// refreshed after a successful mutation. Delivery is best-effort.
type StaleNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStaleNotifier constructs a StaleNotifier.
func NewStaleNotifier(client *redis.Client, logger *slog.Logger) *StaleNotifier {
	return &StaleNotifier{client: client, logger: logger}
}

// Notify invalidates any cached copy of path and publishes the stale event.
func (n *StaleNotifier) Notify(ctx context.Context, path string) {
	if n == nil || n.client == nil {
		return
	}
	if err := n.client.Del(ctx, "viewcache:"+path).Err(); err != nil && n.logger != nil {
		n.logger.Warn("drop view cache", slog.String("path", path), slog.Any("error", err))
	}
	if err := n.client.Publish(ctx, StaleChannel, path).Err(); err != nil && n.logger != nil {
		n.logger.Warn("publish stale view", slog.String("path", path), slog.Any("error", err))
	}
}
