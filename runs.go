package main

import (
	"errors"
	"sync"
)

const maxRuns = 200

var ErrTooManyRuns = errors.New("server full, try again later")

// RunManager handles creation and lookup of server-hosted runs
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunManager creates a new RunManager
func NewRunManager() *RunManager {
	return &RunManager{
		runs: make(map[string]*Run),
	}
}

// Create registers a run and starts its loop
func (rm *RunManager) Create(playerID int64, owner Broadcaster, opts RunOptions, onFinish FinishFunc) (*Run, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.runs) >= maxRuns {
		return nil, ErrTooManyRuns
	}

	run, err := NewRun(GenerateUUID(), playerID, owner, opts, onFinish)
	if err != nil {
		return nil, err
	}
	rm.runs[run.ID] = run
	go run.Loop()
	return run, nil
}

// Get returns a live run by ID
func (rm *RunManager) Get(id string) *Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.runs[id]
}

// Remove stops a run and forgets it
func (rm *RunManager) Remove(id string) {
	rm.mu.Lock()
	run, ok := rm.runs[id]
	delete(rm.runs, id)
	rm.mu.Unlock()
	if ok {
		run.Stop()
	}
}

// Count returns the number of live runs
func (rm *RunManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.runs)
}

// StopAll stops every run, used on shutdown
func (rm *RunManager) StopAll() {
	rm.mu.Lock()
	runs := rm.runs
	rm.runs = make(map[string]*Run)
	rm.mu.Unlock()
	for _, run := range runs {
		run.Stop()
	}
}
