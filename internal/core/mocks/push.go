package mocks

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

var _ ports.PushChannel = (*PushChannel)(nil)

type pushRegistration struct {
	handle   ports.ListenerHandle
	listener ports.Listener
}

// PushChannel is an in-memory ports.PushChannel. Deliver plays the server side
// synchronously on the caller's goroutine.
type PushChannel struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	connects    int
	disconnects int
	listeners   map[domain.EventName][]pushRegistration
	next        ports.ListenerHandle
	emitted     []domain.PushEnvelope
}

func NewPushChannel() *PushChannel {
	return &PushChannel{listeners: make(map[domain.EventName][]pushRegistration)}
}

// FailConnect makes subsequent Connect calls return err.
func (p *PushChannel) FailConnect(err error) {
	p.mu.Lock()
	p.connectErr = err
	p.mu.Unlock()
}

func (p *PushChannel) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	if p.connectErr != nil {
		return p.connectErr
	}
	p.connected = true
	p.connects++
	return nil
}

func (p *PushChannel) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		p.disconnects++
	}
	p.connected = false
	p.listeners = make(map[domain.EventName][]pushRegistration)
}

func (p *PushChannel) On(event domain.EventName, listener ports.Listener) ports.ListenerHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.listeners[event] = append(p.listeners[event], pushRegistration{handle: p.next, listener: listener})
	return p.next
}

func (p *PushChannel) Off(event domain.EventName, handles ...ports.ListenerHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(handles) == 0 {
		delete(p.listeners, event)
		return
	}
	p.listeners[event] = slices.DeleteFunc(p.listeners[event], func(r pushRegistration) bool {
		return slices.Contains(handles, r.handle)
	})
}

func (p *PushChannel) Emit(event domain.EventName, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return apperrors.ErrNotConnected
	}
	p.emitted = append(p.emitted, domain.PushEnvelope{Event: event, Data: raw})
	return nil
}

func (p *PushChannel) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Deliver dispatches one event to the registered listeners, as the transport
// would while connected. Events sent while disconnected are lost.
func (p *PushChannel) Deliver(event domain.EventName, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil
	}
	regs := slices.Clone(p.listeners[event])
	p.mu.Unlock()

	for _, r := range regs {
		r.listener(raw)
	}
	return nil
}

// ListenerCount returns how many listeners are registered for event.
func (p *PushChannel) ListenerCount(event domain.EventName) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[event])
}

// Connects returns how many times a connection was opened.
func (p *PushChannel) Connects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}

// Disconnects returns how many live connections were closed.
func (p *PushChannel) Disconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

// Emitted returns the envelopes sent upstream.
func (p *PushChannel) Emitted() []domain.PushEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.emitted)
}
