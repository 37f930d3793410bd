// Package file provides an event sink that appends JSON lines to a file.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/flowspec/pkg/domain"
)

// DefaultPath is the events file relative to a project root.
var DefaultPath = filepath.Join(".flowspec", "events.jsonl")

// Sink implements ports.EventSink by appending one JSON object per line.
// Safe for concurrent use within a process.
type Sink struct {
	mu   sync.Mutex
	path string
}

// NewSink creates a Sink writing to path. Parent directories are created on first write.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// ForProject returns a Sink writing to DefaultPath under root.
func ForProject(root string) *Sink {
	return NewSink(filepath.Join(root, DefaultPath))
}

// Path returns the events file.
func (s *Sink) Path() string { return s.path }

// Emit appends the event.
func (s *Sink) Emit(_ context.Context, event domain.Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create events dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write event: %w", err)
	}
	return f.Close()
}

// Read returns every event in the file, oldest first. A missing file holds no events.
func (s *Sink) Read() ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []domain.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var evt domain.Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		events = append(events, evt)
	}
	return events, scanner.Err()
}
