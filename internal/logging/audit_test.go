package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAudit_NoopWithoutInit(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	// Debug mode never enabled, so InitAudit is a no-op and Audit must not
	// panic or create a log file.
	Audit(AuditEvent{EventType: AuditCacheHit, Target: "https://example.com", Success: true})
}

func TestAudit_WritesJSONLinesWhenInitialized(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	Audit(AuditEvent{EventType: AuditCacheHit, Target: "https://example.com/form", Success: true, Message: "#submit"})
	Audit(AuditEvent{EventType: AuditCacheMiss, Target: "https://example.com/other", Success: false})
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var auditContent []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), "audit") {
			auditContent, err = os.ReadFile(filepath.Join(logsPath, e.Name()))
			if err != nil {
				t.Fatalf("reading %s: %v", e.Name(), err)
			}
		}
	}
	if auditContent == nil {
		t.Fatal("expected an audit log file to exist")
	}

	lines := strings.Split(strings.TrimSpace(string(auditContent)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d: %q", len(lines), auditContent)
	}

	var first AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first audit line: %v", err)
	}
	if first.EventType != AuditCacheHit || first.Target != "https://example.com/form" || !first.Success {
		t.Errorf("unexpected first audit event: %+v", first)
	}
	if first.Timestamp == 0 {
		t.Error("expected a non-zero timestamp to be stamped automatically")
	}
}

func TestAudit_InitIsNoopOutsideDebugMode(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, false, "info", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	Audit(AuditEvent{EventType: AuditCacheHit, Target: "https://example.com", Success: true})

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		t.Error("expected no logs directory when debug mode is disabled")
	}
}
