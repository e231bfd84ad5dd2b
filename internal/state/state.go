// Package state keeps the runs submitted to the HTTP service, optionally
// persisted as one JSON file per run under a directory.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joshharrison/hlsched/internal/pipeline"
)

const indexFile = "runs.json"

// Run is a stored pipeline result.
type Run struct {
	ID string `json:"id"`
	*pipeline.Result
}

// Store holds runs in submission order.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	dir   string // empty for memory only
}

type index struct {
	Runs []string `json:"runs"`
}

// Open returns a store backed by dir, loading any runs saved there earlier.
// An empty dir keeps runs in memory only.
func Open(dir string) (*Store, error) {
	s := &Store{runs: make(map[string]*Run), dir: dir}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse state index: %w", err)
	}

	for _, id := range idx.Runs {
		run, err := s.load(id)
		if err != nil {
			return nil, err
		}
		s.runs[id] = run
		s.order = append(s.order, id)
	}
	return s, nil
}

func (s *Store) runPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) load(id string) (*Run, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", id, err)
	}
	if run.ID != id {
		return nil, fmt.Errorf("run file %s holds id %q", s.runPath(id), run.ID)
	}
	return &run, nil
}

// Add stores run and, when the store is persistent, writes it to disk
// before it becomes visible.
func (s *Store) Add(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.runs[run.ID]; dup {
		return fmt.Errorf("run %s already stored", run.ID)
	}
	if s.dir != "" {
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		if err := os.WriteFile(s.runPath(run.ID), data, 0644); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		if err := s.saveIndex(append(s.order, run.ID)); err != nil {
			os.Remove(s.runPath(run.ID))
			return err
		}
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return nil
}

// saveIndex must be called with mu held.
func (s *Store) saveIndex(ids []string) error {
	data, err := json.MarshalIndent(index{Runs: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state index: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, indexFile), data, 0644)
}

// Get returns the run with the given id.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// IDs returns every run id in submission order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clean removes the state directory and forgets every run.
func (s *Store) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*Run)
	s.order = nil
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}
