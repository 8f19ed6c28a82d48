package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestProgressTrackerMonotonic(t *testing.T) {
	tracker := NewProgressTracker("test", nil)

	var seen []int
	tracker.Observe(func(percent int) {
		seen = append(seen, percent)
	})

	tracker.Set(10)
	tracker.Set(50)
	tracker.Set(30) // backwards, ignored
	tracker.Set(50) // no change, ignored
	tracker.Set(100)
	tracker.Set(150) // clamped, but 100 already reached

	want := []int{10, 50, 100}
	if len(seen) != len(want) {
		t.Fatalf("expected %v notifications, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %d, want %d", i, seen[i], want[i])
		}
	}

	if tracker.Percent() != 100 {
		t.Errorf("expected final percent 100, got %d", tracker.Percent())
	}
}

func TestProgressTrackerReset(t *testing.T) {
	tracker := NewProgressTracker("first file", nil)
	tracker.Set(80)

	var seen []int
	tracker.Observe(func(percent int) {
		seen = append(seen, percent)
	})

	tracker.Reset("second file")
	if tracker.Percent() != 0 {
		t.Errorf("expected percent 0 after reset, got %d", tracker.Percent())
	}
	if len(seen) != 1 || seen[0] != 0 {
		t.Errorf("expected reset notification with 0, got %v", seen)
	}

	tracker.Set(40)
	if tracker.Percent() != 40 {
		t.Errorf("expected 40 after reset and update, got %d", tracker.Percent())
	}
}

func TestOperationLoggerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	op := NewOperationLogger("import", log).WithField("files", 3)
	op.Step("ingest documents")
	op.Success("Import complete")

	out := buf.String()
	for _, want := range []string{
		"Starting operation",
		`"operation":"import"`,
		`"step":"ingest documents"`,
		`"files":3`,
		`"status":"success"`,
		"Import complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("operation log missing %q:\n%s", want, out)
		}
	}
}

func TestOperationLoggerError(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	op := NewOperationLogger("reconcile", log)
	op.Error(errors.New("database is locked"), "Reconciliation aborted")

	out := buf.String()
	for _, want := range []string{
		`"status":"error"`,
		"database is locked",
		"Reconciliation aborted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("operation log missing %q:\n%s", want, out)
		}
	}
}

func TestProgressTrackerClampsAbove100(t *testing.T) {
	tracker := NewProgressTracker("clamp", nil)
	tracker.Set(250)
	if tracker.Percent() != 100 {
		t.Errorf("expected clamp to 100, got %d", tracker.Percent())
	}
}
