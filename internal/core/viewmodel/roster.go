package viewmodel

import (
	"slices"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

// statusPatch is a worker.status event and the time it was observed.
type statusPatch struct {
	status     domain.WorkerStatus
	observedAt time.Time
}

// WorkerRoster is the in-memory worker list patched by worker.status events.
type WorkerRoster struct {
	mu      sync.RWMutex
	workers []domain.Worker
	patches map[int64]statusPatch
}

func NewWorkerRoster() *WorkerRoster {
	return &WorkerRoster{patches: make(map[int64]statusPatch)}
}

// Load replaces the roster with a fetch result issued at issuedAt. Status
// events observed after issuedAt win over the fetched status.
func (r *WorkerRoster) Load(workers []domain.Worker, issuedAt time.Time) {
	cp := make([]domain.Worker, len(workers))
	for i, w := range workers {
		cp[i] = w.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.patches {
		if !p.observedAt.After(issuedAt) {
			delete(r.patches, id)
		}
	}
	for i := range cp {
		if p, ok := r.patches[cp[i].ID]; ok {
			cp[i].Status = p.status
		}
	}
	r.workers = cp
}

// ApplyStatus records a worker's status observed at at and changes it in
// place. A status for a worker not yet loaded is kept for the next Load. It
// reports whether the worker is known.
func (r *WorkerRoster) ApplyStatus(workerID int64, status domain.WorkerStatus, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patches[workerID]; !ok || !p.observedAt.After(at) {
		r.patches[workerID] = statusPatch{status: status, observedAt: at}
	}
	i := slices.IndexFunc(r.workers, func(w domain.Worker) bool { return w.ID == workerID })
	if i < 0 {
		return false
	}
	r.workers[i].Status = r.patches[workerID].status
	return true
}

// Get returns a copy of one worker.
func (r *WorkerRoster) Get(id int64) (*domain.Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.workers {
		if w.ID == id {
			cp := w.Clone()
			return &cp, true
		}
	}
	return nil, false
}

// Workers returns a copy of the roster.
func (r *WorkerRoster) Workers() []domain.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Worker, len(r.workers))
	for i, w := range r.workers {
		out[i] = w.Clone()
	}
	return out
}

func (r *WorkerRoster) Reset() {
	r.mu.Lock()
	r.workers = nil
	clear(r.patches)
	r.mu.Unlock()
}
