// Package store saves and restores the auction state as a single document.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

// DocumentID keys the one persisted auction document.
const DocumentID = "auction-state"

type Store interface {
	// Load returns the saved state; ok is false when nothing was saved yet.
	Load(ctx context.Context) (s engine.State, ok bool, err error)
	Save(ctx context.Context, s engine.State) error
	Close() error
}

func encode(s engine.State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode auction state: %w", err)
	}
	return b, nil
}

func decode(b []byte) (engine.State, error) {
	var s engine.State
	if err := json.Unmarshal(b, &s); err != nil {
		return engine.State{}, fmt.Errorf("decode auction state: %w", err)
	}
	return s, nil
}

// Memory keeps the encoded document in process. It is used when no database
// is configured and in tests.
type Memory struct {
	mu    sync.Mutex
	doc   []byte
	saves int
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (engine.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return engine.State{}, false, nil
	}
	s, err := decode(m.doc)
	if err != nil {
		return engine.State{}, false, err
	}
	return s, true, nil
}

func (m *Memory) Save(ctx context.Context, s engine.State) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = b
	m.saves++
	return nil
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
