package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ReloadEntry records one load performed in watch mode.
// Each entry is serialized as a JSON line.
type ReloadEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kernel    string    `json:"kernel"`
	Path      string    `json:"path,omitempty"`
	Size      int       `json:"size"`
	Includes  int       `json:"includes"`
	Error     string    `json:"error,omitempty"`
}

// ReloadLog appends reload entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type ReloadLog struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewReloadLog opens path for appending, creating it and its directory if needed.
func NewReloadLog(path string) (*ReloadLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open reload log: %w", err)
	}

	return &ReloadLog{
		file:   file,
		writer: bufio.NewWriterSize(file, 16*1024),
		path:   path,
	}, nil
}

// Write appends an entry and flushes it, so a tail of the file is always current.
func (rl *ReloadLog) Write(entry ReloadEntry) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal reload entry: %w", err)
	}
	if _, err := rl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write reload entry: %w", err)
	}
	if err := rl.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := rl.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush reload log: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the file.
func (rl *ReloadLog) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if err := rl.writer.Flush(); err != nil {
		rl.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := rl.file.Close(); err != nil {
		return fmt.Errorf("failed to close reload log: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the log file.
func (rl *ReloadLog) Path() string {
	return rl.path
}

// ReadReloadLog reads every entry of a JSONL reload log.
func ReadReloadLog(r io.Reader) ([]ReloadEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []ReloadEntry
	for scanner.Scan() {
		var entry ReloadEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reload entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan reload log: %w", err)
	}
	return entries, nil
}
