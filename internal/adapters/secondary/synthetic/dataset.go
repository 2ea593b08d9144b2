package synthetic

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

const (
	// TicketCount is the size of the generated ticket set.
	TicketCount = 50

	centerLat   = 40.7128
	centerLng   = -74.0060
	spreadDeg   = 0.1
	historyDays = 30
	maxSLADays  = 7

	hotspotCell = 0.05
	topHotspots = 5

	avgResolutionHours = 48
	slaPerformance     = 85.2
)

// Dataset is an immutable snapshot of demo data.
type Dataset struct {
	GeneratedAt time.Time
	Departments []domain.Department
	Workers     []domain.Worker
	Users       []domain.User
	Tickets     []domain.Ticket
	Hotspots    []domain.Hotspot
	Analytics   domain.Analytics
}

// Generate builds the dataset. The same seed and now always produce the same data.
func Generate(seed int64, now time.Time) *Dataset {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	now = now.UTC().Truncate(time.Millisecond)

	d := &Dataset{
		GeneratedAt: now,
		Departments: seedDepartments(),
		Workers:     seedWorkers(),
		Users:       seedUsers(now),
	}

	d.Tickets = make([]domain.Ticket, 0, TicketCount)
	for i, s := range seedTickets {
		d.Tickets = append(d.Tickets, s.build(int64(i+1), now))
	}
	for id := int64(len(seedTickets) + 1); id <= TicketCount; id++ {
		d.Tickets = append(d.Tickets, d.randomTicket(rng, id, now))
	}

	d.deriveCounts()
	d.attachWorkerSnapshots()
	d.Hotspots = computeHotspots(d.Tickets)
	d.Analytics = computeAnalytics(d.Tickets, now)
	return d
}

func (s seedTicket) build(id int64, now time.Time) domain.Ticket {
	t := domain.Ticket{
		ID:              id,
		ExternalID:      externalID(id),
		Category:        s.category,
		Description:     s.description,
		Location:        domain.Location{Lat: s.lat, Lng: s.lng},
		ReporterContact: s.reporter,
		Status:          s.status,
		AssignedDept:    s.dept,
		CreatedAt:       now.Add(-s.createdAgo),
		UpdatedAt:       now.Add(-s.updatedAgo),
	}
	if s.photo != "" {
		t.PhotoURL = photoURL("400x300", "666", s.photo)
		t.ThumbnailURL = photoURL("150x150", "666", s.photo)
	}
	if s.workerID != 0 {
		wid := s.workerID
		t.AssignedWorkerID = &wid
	}
	if s.slaIn != 0 {
		due := now.Add(s.slaIn)
		t.SLADue = &due
	}
	return t
}

func (d *Dataset) randomTicket(rng *rand.Rand, id int64, now time.Time) domain.Ticket {
	category := domain.Categories[rng.IntN(len(domain.Categories))]
	status := domain.AllStatuses[rng.IntN(len(domain.AllStatuses))]

	created := now.Add(-time.Duration(rng.IntN(historyDays)) * day).Add(-time.Duration(rng.IntN(24)) * hour)
	updated := created.Add(time.Duration(rng.Int64N(int64(day))))
	if updated.After(now) {
		updated = now
	}

	t := domain.Ticket{
		ID:          id,
		ExternalID:  externalID(id),
		Category:    category,
		Description: "Sample " + strings.ToLower(category) + " issue reported by citizen",
		Location: domain.Location{
			Lat: centerLat + (rng.Float64()-0.5)*2*spreadDeg,
			Lng: centerLng + (rng.Float64()-0.5)*2*spreadDeg,
		},
		Status:    status,
		CreatedAt: created,
		UpdatedAt: updated,
	}

	if rng.Float64() < 0.5 {
		t.ReporterContact = fmt.Sprintf("+123456789%d", rng.IntN(10))
	} else {
		t.ReporterContact = fmt.Sprintf("citizen%d@email.com", id)
	}

	if rng.Float64() < 0.4 {
		color := fmt.Sprintf("%06x", rng.IntN(0xFFFFFF))
		label := strings.ReplaceAll(category, " ", "+")
		t.PhotoURL = photoURL("400x300", color, label)
		t.ThumbnailURL = photoURL("150x150", color, label)
	}

	if rng.Float64() < 0.7 {
		dept := d.Departments[rng.IntN(len(d.Departments))].Name
		t.AssignedDept = dept
		if rng.Float64() < 0.6 {
			w := d.pickWorker(rng, dept)
			t.AssignedWorkerID = &w.ID
		}
	}

	if !status.IsDone() {
		due := now.Add(time.Duration(rng.IntN(maxSLADays)) * day)
		t.SLADue = &due
	}
	return t
}

// pickWorker prefers a worker from dept and falls back to anyone.
func (d *Dataset) pickWorker(rng *rand.Rand, dept string) domain.Worker {
	var pool []domain.Worker
	for _, w := range d.Workers {
		if w.Department == dept {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		pool = d.Workers
	}
	return pool[rng.IntN(len(pool))]
}

func (d *Dataset) deriveCounts() {
	perWorker := map[int64]int{}
	perDept := map[string]int{}
	for _, t := range d.Tickets {
		if !t.Status.IsActive() {
			continue
		}
		if t.AssignedWorkerID != nil {
			perWorker[*t.AssignedWorkerID]++
		}
		if t.AssignedDept != "" {
			perDept[t.AssignedDept]++
		}
	}
	for i := range d.Workers {
		d.Workers[i].AssignedTickets = perWorker[d.Workers[i].ID]
	}
	for i := range d.Departments {
		d.Departments[i].ActiveTickets = perDept[d.Departments[i].Name]
	}
}

func (d *Dataset) attachWorkerSnapshots() {
	byID := make(map[int64]domain.Worker, len(d.Workers))
	for _, w := range d.Workers {
		byID[w.ID] = w
	}
	for i := range d.Tickets {
		t := &d.Tickets[i]
		if t.AssignedWorkerID == nil {
			continue
		}
		if w, ok := byID[*t.AssignedWorkerID]; ok {
			snapshot := w.Clone()
			t.AssignedWorker = &snapshot
		}
	}
}

type cellKey struct{ lat, lng int }

type cell struct {
	sumLat, sumLng float64
	count          int
	categories     map[string]int
}

// computeHotspots grids tickets into fixed cells and keeps cells with at
// least two tickets, ordered by count descending.
func computeHotspots(tickets []domain.Ticket) []domain.Hotspot {
	cells := map[cellKey]*cell{}
	for _, t := range tickets {
		key := cellKey{
			lat: int(math.Floor(t.Lat / hotspotCell)),
			lng: int(math.Floor(t.Lng / hotspotCell)),
		}
		c, ok := cells[key]
		if !ok {
			c = &cell{categories: map[string]int{}}
			cells[key] = c
		}
		c.sumLat += t.Lat
		c.sumLng += t.Lng
		c.count++
		c.categories[t.Category]++
	}

	hotspots := make([]domain.Hotspot, 0, len(cells))
	for _, c := range cells {
		if c.count < 2 {
			continue
		}
		hotspots = append(hotspots, domain.Hotspot{
			Location: domain.Location{
				Lat: c.sumLat / float64(c.count),
				Lng: c.sumLng / float64(c.count),
			},
			Count:    c.count,
			Category: dominant(c.categories),
		})
	}

	slices.SortFunc(hotspots, func(a, b domain.Hotspot) int {
		if n := cmp.Compare(b.Count, a.Count); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Lat, b.Lat); n != 0 {
			return n
		}
		return cmp.Compare(a.Lng, b.Lng)
	})
	return hotspots
}

// dominant returns the most frequent category, ties broken alphabetically.
func dominant(categories map[string]int) string {
	best, bestCount := "", 0
	for name, n := range categories {
		if n > bestCount || (n == bestCount && name < best) {
			best, bestCount = name, n
		}
	}
	return best
}

func computeAnalytics(tickets []domain.Ticket, now time.Time) domain.Analytics {
	a := domain.Analytics{
		TotalTickets:      len(tickets),
		AvgResolutionTime: avgResolutionHours,
		SLAPerformance:    slaPerformance,
	}
	for i := range tickets {
		t := &tickets[i]
		switch {
		case t.Status.IsDone():
			a.ResolvedTickets++
		case t.Status.IsPending():
			a.PendingTickets++
		}
		if t.IsOverdue(now) {
			a.OverdueTickets++
		}
	}
	return a
}
