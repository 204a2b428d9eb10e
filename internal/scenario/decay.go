package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// DecayConfidence multiplicatively decays the confidence of every scenario
// not run since cutoff, floored at cfg.ConfidenceFloor. Ported from the
// teacher's LearningStore.DecayConfidence idea onto Scenario.confidence, run
// by DecayLoop on its own ticker, separate from the store's CleanupLoop. No
// scenario is deleted; confidence stops at the floor.
func (s *Store) DecayConfidence(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.ConfidenceDecayAfter).Unix()

	res, err := s.store.DB().ExecContext(ctx, `
		UPDATE test_scenarios
		SET confidence = MAX(confidence * ?, ?)
		WHERE (last_run IS NULL OR last_run < ?)
		  AND confidence > ?`,
		s.cfg.ConfidenceDecayFactor, s.cfg.ConfidenceFloor, cutoff, s.cfg.ConfidenceFloor)
	if err != nil {
		return 0, fmt.Errorf("scenario: decayConfidence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scenario: decayConfidence: rows affected: %w", err)
	}
	if n > 0 {
		logging.ScenarioDebug("decayed confidence for %d stale scenarios", n)
	}
	return int(n), nil
}
