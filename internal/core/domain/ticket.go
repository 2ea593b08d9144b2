package domain

import (
	"time"
)

// TicketStatus represents the workflow position of a ticket.
// The dashboard displays the workflow but does not enforce transitions;
// the remote service owns legality.
type TicketStatus string

const (
	StatusSubmitted  TicketStatus = "submitted"
	StatusTriaged    TicketStatus = "triaged"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusDuplicate  TicketStatus = "duplicate"
	StatusRejected   TicketStatus = "rejected"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []TicketStatus{
	StatusSubmitted,
	StatusTriaged,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
	StatusDuplicate,
	StatusRejected,
}

// IsValid checks if the status is one of the known values.
func (s TicketStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsDone reports whether the ticket no longer counts against its SLA.
func (s TicketStatus) IsDone() bool {
	return s == StatusResolved || s == StatusClosed
}

// IsPending reports whether nobody has started working on the ticket yet.
func (s TicketStatus) IsPending() bool {
	return s == StatusSubmitted || s == StatusTriaged
}

// IsActive reports whether the ticket still occupies a department or worker.
func (s TicketStatus) IsActive() bool {
	return !s.IsDone() && s != StatusDuplicate && s != StatusRejected
}

// Issue categories reported by citizens.
const (
	CategoryPothole        = "Pothole"
	CategoryStreetLighting = "Street Lighting"
	CategoryGarbage        = "Garbage Collection"
	CategoryWaterLeakage   = "Water Leakage"
	CategoryBrokenSidewalk = "Broken Sidewalk"
	CategoryTrafficSignal  = "Traffic Signal"
	CategoryTreeRemoval    = "Tree Removal"
	CategoryGraffiti       = "Graffiti"
	CategoryNoise          = "Noise Complaint"
	CategoryOther          = "Other"
)

// Categories is the fixed category enumeration.
var Categories = []string{
	CategoryPothole,
	CategoryStreetLighting,
	CategoryGarbage,
	CategoryWaterLeakage,
	CategoryBrokenSidewalk,
	CategoryTrafficSignal,
	CategoryTreeRemoval,
	CategoryGraffiti,
	CategoryNoise,
	CategoryOther,
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsValid checks the coordinate ranges.
func (l Location) IsValid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// TimelineEntry is one audit record attached to a ticket.
type TimelineEntry struct {
	ID        int64          `json:"id"`
	TicketID  int64          `json:"ticket_id"`
	ActorID   *int64         `json:"actor_id,omitempty"`
	Actor     *User          `json:"actor,omitempty"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Ticket is a reported civic issue (a.k.a. service request).
// Location is embedded so lat/lng are flat on the wire.
type Ticket struct {
	ID          int64  `json:"id"`
	ExternalID  string `json:"external_id,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location
	PhotoURL         string          `json:"photo_url,omitempty"`
	ThumbnailURL     string          `json:"thumbnail_url,omitempty"`
	ReporterContact  string          `json:"reporter_contact,omitempty"`
	Status           TicketStatus    `json:"status"`
	AssignedDept     string          `json:"assigned_dept,omitempty"`
	AssignedWorkerID *int64          `json:"assigned_worker_id,omitempty"`
	AssignedWorker   *Worker         `json:"assigned_worker,omitempty"`
	SLADue           *time.Time      `json:"sla_due,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Timeline         []TimelineEntry `json:"timeline,omitempty"`
}

// IsOverdue reports whether the SLA deadline passed while the ticket was still open.
func (t *Ticket) IsOverdue(now time.Time) bool {
	return t.SLADue != nil && t.SLADue.Before(now) && !t.Status.IsDone()
}

// IsAssignedTo checks if the ticket is assigned to the given worker.
func (t *Ticket) IsAssignedTo(workerID int64) bool {
	return t.AssignedWorkerID != nil && *t.AssignedWorkerID == workerID
}

// Clone returns a copy that shares no pointers with the receiver.
func (t *Ticket) Clone() Ticket {
	c := *t
	if c.AssignedWorkerID != nil {
		id := *c.AssignedWorkerID
		c.AssignedWorkerID = &id
	}
	if c.AssignedWorker != nil {
		w := c.AssignedWorker.Clone()
		c.AssignedWorker = &w
	}
	if c.SLADue != nil {
		due := *c.SLADue
		c.SLADue = &due
	}
	if c.Timeline != nil {
		c.Timeline = append([]TimelineEntry(nil), c.Timeline...)
	}
	return c
}
