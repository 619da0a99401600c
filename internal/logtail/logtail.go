package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Level is the severity a log line is displayed with.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns the whole file. A missing file yields no
// lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

var (
	errorMarkers = []string{" failed", "error", "panic"}
	warnMarkers  = []string{"warn", "no active loan", "reload", "expired"}
)

// Classify guesses the level of a line written by the standard logger.
func Classify(line string) Level {
	lower := strings.ToLower(line)
	for _, m := range errorMarkers {
		if strings.Contains(lower, m) {
			return LevelError
		}
	}
	for _, m := range warnMarkers {
		if strings.Contains(lower, m) {
			return LevelWarn
		}
	}
	return LevelInfo
}

// Filter keeps the lines containing query, ignoring case. A blank query
// keeps every line.
func Filter(lines []string, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), query) {
			out = append(out, line)
		}
	}
	return out
}
