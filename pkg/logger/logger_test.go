package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l := &Logger{
		areaEnabled:   make(map[LogArea]*int32),
		logPath:       filepath.Join(t.TempDir(), "test.log"),
		rotationCount: 2,
	}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}
	if err := l.openLogFile(); err != nil {
		t.Fatalf("openLogFile failed: %v", err)
	}
	t.Cleanup(func() {
		if l.file != nil {
			l.file.Close()
		}
	})
	return l
}

// TestParseLogLevel tests level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{" warning ", WARN},
		{"Error", ERROR},
		{"FATAL", FATAL},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestShouldLog tests level and area filtering
func TestShouldLog(t *testing.T) {
	l := newTestLogger(t)
	l.enabled = 1
	l.level = int32(INFO)
	*l.areaEnabled[AreaInterpreter] = 1

	if !l.shouldLog(INFO, AreaInterpreter) {
		t.Error("INFO in an enabled area should be logged")
	}
	if l.shouldLog(DEBUG, AreaInterpreter) {
		t.Error("DEBUG below the threshold should be dropped")
	}
	if l.shouldLog(ERROR, AreaAuth) {
		t.Error("Disabled areas should be dropped")
	}
	if l.shouldLog(ERROR, LogArea("unknown")) {
		t.Error("Unknown areas should be dropped")
	}
	l.enabled = 0
	if l.shouldLog(FATAL, AreaInterpreter) {
		t.Error("Nothing should be logged when logging is disabled")
	}
}

// TestWriteLogAndConsole tests the entry format and the console mirror
func TestWriteLogAndConsole(t *testing.T) {
	l := newTestLogger(t)
	var console bytes.Buffer
	l.console = &console

	l.writeLog(INFO, AreaInterpreter, "RUN from line %d", 10)

	data, err := os.ReadFile(l.logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "[INTERPRETER] RUN from line 10") {
		t.Errorf("Unexpected log entry %q", line)
	}
	if console.String() != line {
		t.Errorf("Console mirror differs: %q vs %q", console.String(), line)
	}
}

// TestRotate tests log rotation
func TestRotate(t *testing.T) {
	l := newTestLogger(t)
	for i := 0; i < 3; i++ {
		l.writeLog(WARN, AreaGeneral, "entry %d", i)
		l.mutex.Lock()
		if err := l.rotate(); err != nil {
			l.mutex.Unlock()
			t.Fatalf("rotate failed: %v", err)
		}
		l.mutex.Unlock()
	}

	for _, name := range []string{l.logPath, l.logPath + ".1", l.logPath + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(l.logPath + ".3"); !os.IsNotExist(err) {
		t.Errorf("Only %d rotated files should be kept", l.rotationCount)
	}
	data, _ := os.ReadFile(l.logPath + ".1")
	if !strings.Contains(string(data), "entry 2") {
		t.Errorf("Newest rotated file should hold the last entry, got %q", data)
	}
}

// TestListAreas tests that the area list is a copy
func TestListAreas(t *testing.T) {
	areas := ListAreas()
	if len(areas) != len(allAreas) {
		t.Fatalf("Expected %d areas, got %d", len(allAreas), len(areas))
	}
	areas[0] = "changed"
	if allAreas[0] == "changed" {
		t.Error("ListAreas should return a copy")
	}
}
