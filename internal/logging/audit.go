package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a structured, queryable audit event.
type AuditEventType string

const (
	AuditCacheHit          AuditEventType = "cache_hit"
	AuditCacheMiss         AuditEventType = "cache_miss"
	AuditCacheLearn        AuditEventType = "cache_learn"
	AuditCacheInvalidate   AuditEventType = "cache_invalidate"
	AuditScenarioSave      AuditEventType = "scenario_save"
	AuditScenarioAdapt     AuditEventType = "scenario_adapt"
	AuditScenarioExecution AuditEventType = "scenario_execution"
	AuditBreakerTransition AuditEventType = "breaker_transition"
	AuditDegradationChange AuditEventType = "degradation_change"
	AuditValidationFailure AuditEventType = "validation_failure"
)

// AuditEvent is one structured, append-only audit line.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Target     string                 `json:"target"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log for the current logs directory. It is a
// no-op when debug mode was never enabled.
func InitAudit() error {
	if !isDebugMode() {
		return nil
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logging: failed to open audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file, if open.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit appends one structured event to the audit log. Silently a no-op
// when auditing was never initialized, matching the rest of this package's
// "log freely, pay nothing when disabled" contract.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(data)
	auditFile.Write([]byte("\n"))
}
