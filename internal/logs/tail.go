package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"contentops/internal/logging"
)

const maxLineBytes = 1024 * 1024

// Entry is one decoded log line.
type Entry struct {
	Time         time.Time
	Level        string
	Message      string
	Component    string
	OutputID     string
	SubmissionID string
	JobID        string
	Fields       map[string]any
	Raw          string
}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	// MinLevel is one of debug, info, warn, error.
	MinLevel     string
	Component    string
	OutputID     string
	SubmissionID string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.MinLevel != "" && levelRank(e.Level) < levelRank(f.MinLevel) {
		return false
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	if f.OutputID != "" && e.OutputID != f.OutputID {
		return false
	}
	if f.SubmissionID != "" && e.SubmissionID != f.SubmissionID {
		return false
	}
	return true
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

// Parse decodes a JSON log line.
func Parse(line string) Entry {
	e := Entry{Raw: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		e.Message = line
		return e
	}
	take := func(key string) string {
		v, ok := fields[key].(string)
		if ok {
			delete(fields, key)
		}
		return v
	}
	ts := take("ts")
	if ts == "" {
		ts = take("time")
	}
	if ts != "" {
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	e.Level = take("level")
	e.Message = take("msg")
	e.Component = take(logging.FieldComponent)
	e.OutputID = take(logging.FieldOutputID)
	e.SubmissionID = take(logging.FieldSubmissionID)
	e.JobID = take(logging.FieldJobID)
	e.Fields = fields
	return e
}

// Tail returns the last limit entries of path matching f, and the file
// offset after the last byte read. A missing file yields no entries.
func Tail(path string, limit int, f Filter) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []Entry
	offset, err := scan(file, func(e Entry) {
		if !f.Match(e) {
			return
		}
		ring = append(ring, e)
		if limit > 0 && len(ring) > limit {
			ring = ring[1:]
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return ring, offset, nil
}

// Follow emits matching entries appended after offset, polling every poll
// interval until ctx ends. A file that shrinks (rotated by a daemon restart)
// is read again from the start.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, f Filter, emit func(Entry)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		next, err := readFrom(path, offset, f, emit)
		if err != nil {
			return err
		}
		offset = next
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, f Filter, emit func(Entry)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, func(e Entry) {
		if f.Match(e) {
			emit(e)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan feeds complete lines to fn and returns the bytes consumed. A trailing
// partial line is left for the next read.
func scan(r io.Reader, fn func(Entry)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		if trimmed := strings.TrimRight(line, "\r\n"); trimmed != "" {
			fn(Parse(trimmed))
		}
	}
}
