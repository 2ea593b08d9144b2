package tokenstore

import (
	"context"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

// Memory keeps the token for the lifetime of the process only.
type Memory struct {
	mu    sync.Mutex
	token string
}

var _ ports.TokenStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	return m.Save(context.Background(), "")
}
