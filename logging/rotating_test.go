package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWeekKey(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-W01"},
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), "2025-W24"},
	}

	for _, tt := range tests {
		if got := weekKey(tt.date); got != tt.expected {
			t.Errorf("weekKey(%v) = %s, want %s", tt.date, got, tt.expected)
		}
	}
}

func TestRotatingLoggerRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 100)
	if err != nil {
		t.Fatalf("NewRotatingLogger failed: %v", err)
	}
	defer rl.Close()

	line := strings.Repeat("x", 59) + "\n"
	for i := 0; i < 5; i++ {
		if _, err := rl.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	files, _ := filepath.Glob(filepath.Join(dir, "polyrisk-*.log"))
	if len(files) != 5 {
		t.Errorf("Expected 5 files of one line each, got %d: %v", len(files), files)
	}
	week := weekKey(time.Now())
	if !strings.HasSuffix(rl.CurrentFile(), week+"_04.log") {
		t.Errorf("Expected fourth numbered file, got %s", rl.CurrentFile())
	}
}

func TestRotatingLoggerRotatesByWeek(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger failed: %v", err)
	}
	defer rl.Close()

	rl.Write([]byte("this week\n"))

	next := time.Now().AddDate(0, 0, 7)
	rl.mu.Lock()
	rl.now = func() time.Time { return next }
	rl.mu.Unlock()
	rl.Write([]byte("next week\n"))

	expected := filepath.Join(dir, "polyrisk-"+weekKey(next)+".log")
	if rl.CurrentFile() != expected {
		t.Errorf("Expected %s, got %s", expected, rl.CurrentFile())
	}
}

func TestRotatingLoggerReopensExistingFile(t *testing.T) {
	dir := t.TempDir()
	rl, _ := NewRotatingLogger(dir, 1, 0)
	rl.Write([]byte("first\n"))
	rl.Close()

	rl, _ = NewRotatingLogger(dir, 1, 0)
	rl.Write([]byte("second\n"))
	rl.Close()

	content, _ := os.ReadFile(filepath.Join(dir, "polyrisk-"+weekKey(time.Now())+".log"))
	if string(content) != "first\nsecond\n" {
		t.Errorf("Expected appended content, got %q", content)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRotatingLogger(dir, 1, 0)
	if err != nil {
		t.Fatalf("NewRotatingLogger failed: %v", err)
	}
	defer rl.Close()

	old := filepath.Join(dir, "polyrisk-2020-W01.log")
	other := filepath.Join(dir, "unrelated.log")
	for _, path := range []string{old, other} {
		os.WriteFile(path, []byte("x"), 0644)
		past := time.Now().AddDate(0, 0, -30)
		os.Chtimes(path, past, past)
	}

	deleted, err := rl.cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted file, got %d", deleted)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected old log to be removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("Expected unrelated file to be kept")
	}
	if _, err := os.Stat(rl.CurrentFile()); err != nil {
		t.Error("Expected current file to be kept")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rl, err := NewRotatingLogger(t.TempDir(), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	rl.startCleanup(time.Hour)
	if err := rl.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if _, err := rl.Write([]byte("late")); err == nil {
		t.Error("Expected write after close to fail")
	}
}
