package store

import (
	"context"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// CleanupLoop runs RunCleanup on a fixed interval until ctx is canceled,
// expressed as a long-lived task that awakens on a timer channel per
// spec.md §9's "coroutine-style async cleanup" design note. Shutdown is
// cooperative: the loop returns as soon as ctx is done, never mid-cleanup.
func (s *Store) CleanupLoop(ctx context.Context, interval, selectorTTL time.Duration, maxVariationsPerSelector int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.StoreDebug("cleanup loop stopped")
			return
		case <-ticker.C:
			if _, err := s.RunCleanup(selectorTTL, maxVariationsPerSelector); err != nil {
				logging.Get(logging.CategoryStore).Warn("scheduled cleanup failed: %v", err)
			}
			if _, err := s.AutoCleanup(DefaultCleanupConfig()); err != nil {
				logging.Get(logging.CategoryStore).Warn("scheduled row-budget cleanup failed: %v", err)
			}
		}
	}
}
