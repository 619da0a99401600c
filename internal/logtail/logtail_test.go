package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "lector.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("lector 2024/03/15 10:00:%02d loan %d created", i, i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Fatalf("Read() = %v, want empty", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Level
	}{
		{"lector 2024/03/15 10:00:00 loan 3 created exemplar=2 user=4", LevelInfo},
		{"lector 2024/03/15 10:00:00 create loan exemplar=2 user=4 failed: L'exemplar ja està prestat", LevelError},
		{"lector 2024/03/15 10:00:00 exemplar 2 is prestat with no active loan; updating status only", LevelWarn},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := Classify(tt.line); got != tt.want {
			t.Errorf("Classify(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	lines := []string{"Loan 1 created", "return loan 2 failed", "login ok"}
	if got := Filter(lines, "  LOAN "); len(got) != 2 {
		t.Fatalf("Filter(loan) = %v, want 2 lines", got)
	}
	if got := Filter(lines, ""); !reflect.DeepEqual(got, lines) {
		t.Fatalf("Filter(blank) = %v, want all lines", got)
	}
	if got := Filter(lines, "nothing"); len(got) != 0 {
		t.Fatalf("Filter(nothing) = %v, want empty", got)
	}
}
