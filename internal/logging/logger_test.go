package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// resetState clears every package-level var Initialize/Get/CloseAll mutate,
// mirroring the teacher's logger_test.go reset block so tests don't bleed
// into each other.
func resetState() {
	CloseAudit()
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	cfg = runtimeConfig{}
	logLevel = LevelInfo
}

func TestInitialize_DebugModeCreatesLogFiles(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	categories := []Category{CategoryCache, CategoryScenario, CategoryBreaker}
	for _, cat := range categories {
		Get(cat).Info("hello from %s", cat)
	}
	CloseAll()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, e := range entries {
			if strings.Contains(e.Name(), string(cat)) {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, e.Name()))
				if err != nil {
					t.Errorf("reading %s: %v", e.Name(), err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("log file for %s is empty", cat)
				}
			}
		}
		if !found {
			t.Errorf("no log file found for category %s", cat)
		}
	}
}

func TestInitialize_ProductionModeWritesNothing(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, false, "info", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Get(CategoryCache).Info("should not be written")
	Get(CategoryCache).Error("should not be written either")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("expected no log files in production mode, found %d", len(entries))
		}
	} else if !os.IsNotExist(err) {
		t.Fatalf("Stat: %v", err)
	}
}

func TestInitialize_RequiresWorkspaceRootInDebugMode(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	if err := Initialize("", true, "debug", false); err == nil {
		t.Error("expected an error when debug mode is enabled without a workspace root")
	}
}

func TestLogLevelFiltersBelowThreshold(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "warn", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	logger := Get(CategoryCache)
	logger.Debug("dropped: below warn threshold")
	logger.Info("dropped: below warn threshold")
	logger.Warn("kept: at warn threshold")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var content []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryCache)) {
			content, err = os.ReadFile(filepath.Join(logsPath, e.Name()))
			if err != nil {
				t.Fatalf("reading %s: %v", e.Name(), err)
			}
		}
	}
	if strings.Contains(string(content), "below warn threshold") {
		t.Error("expected debug/info lines to be filtered out at warn level")
	}
	if !strings.Contains(string(content), "at warn threshold") {
		t.Error("expected the warn line to be written")
	}
}

func TestJSONFormatEmitsStructuredLines(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "debug", true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryCache).Info("structured hello")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var content string
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryCache)) {
			data, err := os.ReadFile(filepath.Join(logsPath, e.Name()))
			if err != nil {
				t.Fatalf("reading %s: %v", e.Name(), err)
			}
			content = string(data)
		}
	}
	if !strings.Contains(content, `"msg":"structured hello"`) {
		t.Errorf("expected a JSON structured line, got %q", content)
	}
}

func TestTimerStop(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	timer := StartTimer(CategoryCache, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()
	if elapsed <= 0 {
		t.Error("expected a non-zero elapsed duration")
	}
}

func TestConvenienceHelpersRouteToTheirCategory(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	tempDir := t.TempDir()
	if err := Initialize(tempDir, true, "debug", false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Cache("cache convenience log")
	Scenario("scenario convenience log")
	Breaker("breaker convenience log")
	Store("store convenience log")
	CloseAll()

	logsPath := filepath.Join(tempDir, ".selectorcache", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, cat := range []Category{CategoryCache, CategoryScenario, CategoryBreaker, CategoryStore} {
		found := false
		for _, e := range entries {
			if strings.Contains(e.Name(), string(cat)) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a log file for convenience-logged category %s", cat)
		}
	}
}
