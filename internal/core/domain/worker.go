package domain

// WorkerStatus is a field worker's availability.
type WorkerStatus string

const (
	WorkerOnline  WorkerStatus = "online"
	WorkerOffline WorkerStatus = "offline"
	WorkerBusy    WorkerStatus = "busy"
)

// IsValid checks if the worker status is one of the known values.
func (s WorkerStatus) IsValid() bool {
	switch s {
	case WorkerOnline, WorkerOffline, WorkerBusy:
		return true
	}
	return false
}

// Worker is a department field worker.
type Worker struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone,omitempty"`
	Email           string       `json:"email,omitempty"`
	Department      string       `json:"department,omitempty"`
	Status          WorkerStatus `json:"status"`
	AssignedTickets int          `json:"assigned_tickets"`
	Location        *Location    `json:"location,omitempty"`
}

func (w Worker) Clone() Worker {
	if w.Location != nil {
		loc := *w.Location
		w.Location = &loc
	}
	return w
}

// Department groups workers and owns assigned tickets.
type Department struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	WorkersCount  int    `json:"workers_count"`
	ActiveTickets int    `json:"active_tickets"`
}
