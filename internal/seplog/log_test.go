package seplog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAlsoToFileMirrorsOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	if err := AlsoToFile(path); err != nil {
		t.Fatalf("AlsoToFile error: %v", err)
	}
	Printf("hello %d\n", 42)

	logFile.Flush()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(data), "hello 42") {
		t.Errorf("log file contents = %q, want it to contain %q", data, "hello 42")
	}
}

func TestAlsoToFileReplacesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")

	if err := AlsoToFile(first); err != nil {
		t.Fatalf("AlsoToFile(first) error: %v", err)
	}
	Println("to-first")
	if err := AlsoToFile(second); err != nil {
		t.Fatalf("AlsoToFile(second) error: %v", err)
	}
	Println("to-second")
	logFile.Flush()

	secondData, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("ReadFile(second) error: %v", err)
	}
	if strings.Contains(string(secondData), "to-first") {
		t.Errorf("second log file should not contain output written before the switch")
	}
	if !strings.Contains(string(secondData), "to-second") {
		t.Errorf("second log file missing expected output")
	}
}
