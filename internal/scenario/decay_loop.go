package scenario

import (
	"context"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// DecayLoop runs DecayConfidence on a fixed interval until ctx is canceled,
// the same coroutine-style timer-woken task as store.CleanupLoop.
func (s *Store) DecayLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.ScenarioDebug("decay loop stopped")
			return
		case <-ticker.C:
			if _, err := s.DecayConfidence(ctx); err != nil {
				logging.Get(logging.CategoryScenario).Warn("scheduled confidence decay failed: %v", err)
			}
		}
	}
}
