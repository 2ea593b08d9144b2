package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Analytics is an aggregate SLA snapshot.
type Analytics struct {
	TotalTickets      int     `json:"total_tickets"`
	ResolvedTickets   int     `json:"resolved_tickets"`
	PendingTickets    int     `json:"pending_tickets"`
	OverdueTickets    int     `json:"overdue_tickets"`
	AvgResolutionTime float64 `json:"avg_resolution_time"` // hours
	SLAPerformance    float64 `json:"sla_performance"`     // percentage 0-100
}

// Hotspot is a derived spatial cluster of tickets.
type Hotspot struct {
	Location
	Count    int    `json:"count"`
	Category string `json:"category,omitempty"`
}

// BoundingBox is a map viewport.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// ParseBoundingBox parses the "west,south,east,north" form used by map widgets.
func ParseBoundingBox(s string) (*BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 comma separated values, got %d", len(parts))
	}
	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q: %w", part, err)
		}
		values[i] = v
	}
	box := &BoundingBox{West: values[0], South: values[1], East: values[2], North: values[3]}
	if box.West > box.East || box.South > box.North {
		return nil, fmt.Errorf("bbox %q is inverted", s)
	}
	return box, nil
}

// Contains reports whether loc lies inside the box, edges included.
func (b *BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.South && loc.Lat <= b.North && loc.Lng >= b.West && loc.Lng <= b.East
}

// String formats the box the way ParseBoundingBox reads it.
func (b *BoundingBox) String() string {
	return strconv.FormatFloat(b.West, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.South, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.East, 'f', -1, 64) + "," +
		strconv.FormatFloat(b.North, 'f', -1, 64)
}
