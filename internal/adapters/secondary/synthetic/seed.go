package synthetic

import (
	"fmt"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

func seedDepartments() []domain.Department {
	return []domain.Department{
		{ID: 1, Name: "Public Works", Description: "Road maintenance, infrastructure, and utilities", WorkersCount: 15},
		{ID: 2, Name: "Sanitation", Description: "Waste management and street cleaning", WorkersCount: 12},
		{ID: 3, Name: "Parks & Recreation", Description: "Park maintenance and recreational facilities", WorkersCount: 8},
		{ID: 4, Name: "Transportation", Description: "Traffic signals, street signs, and public transport", WorkersCount: 10},
		{ID: 5, Name: "Environmental Services", Description: "Environmental issues and pollution control", WorkersCount: 6},
	}
}

func seedWorkers() []domain.Worker {
	worker := func(id int64, name, email, dept string, status domain.WorkerStatus, lat, lng float64) domain.Worker {
		return domain.Worker{
			ID:         id,
			Name:       name,
			Phone:      fmt.Sprintf("+123456789%d", id-1),
			Email:      email,
			Department: dept,
			Status:     status,
			Location:   &domain.Location{Lat: lat, Lng: lng},
		}
	}
	return []domain.Worker{
		worker(1, "Mike Johnson", "mike.johnson@city.gov", "Public Works", domain.WorkerOnline, 40.7128, -74.0060),
		worker(2, "Sarah Davis", "sarah.davis@city.gov", "Sanitation", domain.WorkerBusy, 40.7589, -73.9851),
		worker(3, "Tom Wilson", "tom.wilson@city.gov", "Parks & Recreation", domain.WorkerOnline, 40.7505, -73.9934),
		worker(4, "Lisa Brown", "lisa.brown@city.gov", "Transportation", domain.WorkerOffline, 40.7282, -74.0776),
		worker(5, "James Miller", "james.miller@city.gov", "Environmental Services", domain.WorkerOnline, 40.7614, -73.9776),
		worker(6, "Emily Taylor", "emily.taylor@city.gov", "Public Works", domain.WorkerBusy, 40.7749, -73.9442),
	}
}

func seedUsers(now time.Time) []domain.User {
	daysAgo := func(d int) time.Time { return now.Add(-time.Duration(d) * 24 * time.Hour) }
	return []domain.User{
		{ID: 1, Name: "John Admin", Phone: "+1234567890", Email: "admin@civic.com", Role: domain.RoleAdmin, CreatedAt: daysAgo(365)},
		{ID: 2, Name: "Jane Super Admin", Phone: "+0987654321", Email: "superadmin@civic.com", Role: domain.RoleSuperAdmin, CreatedAt: daysAgo(400)},
		{ID: 3, Name: "Bob Worker", Phone: "+1122334455", Email: "worker@civic.com", Role: domain.RoleWorker, CreatedAt: daysAgo(180)},
		{ID: 4, Name: "Alice Viewer", Phone: "+5566778899", Email: "viewer@civic.com", Role: domain.RoleViewer, CreatedAt: daysAgo(90)},
	}
}

// seedTicket is a hand-authored ticket with times relative to generation.
type seedTicket struct {
	category    string
	description string
	lat, lng    float64
	photo       string
	reporter    string
	status      domain.TicketStatus
	dept        string
	workerID    int64
	slaIn       time.Duration // relative to now; zero means no deadline
	createdAgo  time.Duration
	updatedAgo  time.Duration
}

const (
	hour = time.Hour
	day  = 24 * time.Hour
)

var seedTickets = []seedTicket{
	{domain.CategoryPothole, "Large pothole on Main Street causing traffic issues", 40.7128, -74.0060, "Pothole", "+1234567890",
		domain.StatusInProgress, "Public Works", 1, 24 * hour, 2 * day, hour},
	{domain.CategoryStreetLighting, "Street light not working on Oak Avenue", 40.7589, -73.9851, "", "citizen@email.com",
		domain.StatusAssigned, "Public Works", 6, 48 * hour, day, 30 * time.Minute},
	{domain.CategoryGarbage, "Missed garbage collection on Pine Street", 40.7505, -73.9934, "Garbage", "+1234567891",
		domain.StatusResolved, "Sanitation", 2, -12 * hour, 3 * day, 2 * hour},
	{domain.CategoryWaterLeakage, "Water leak near the park entrance", 40.7282, -74.0776, "", "park.visitor@email.com",
		domain.StatusSubmitted, "", 0, 72 * hour, 30 * time.Minute, 30 * time.Minute},
	{domain.CategoryBrokenSidewalk, "Cracked sidewalk creating pedestrian hazard", 40.7614, -73.9776, "Sidewalk", "+1234567892",
		domain.StatusTriaged, "Public Works", 0, 96 * hour, 4 * hour, 2 * hour},
	{domain.CategoryTrafficSignal, "Traffic light stuck on red at intersection", 40.7749, -73.9442, "", "+1234567893",
		domain.StatusInProgress, "Transportation", 4, 6 * hour, 45 * time.Minute, 15 * time.Minute},
	{domain.CategoryTreeRemoval, "Dead tree branch hanging dangerously over sidewalk", 40.7831, -73.9712, "Tree", "concerned.citizen@email.com",
		domain.StatusAssigned, "Parks & Recreation", 3, 120 * hour, 8 * hour, 4 * hour},
	{domain.CategoryGraffiti, "Graffiti vandalism on public building wall", 40.7424, -74.0060, "Graffiti", "+1234567894",
		domain.StatusClosed, "Public Works", 1, -24 * hour, 5 * day, day},
	{domain.CategoryGarbage, "Overflowing bins on Pine Street, same spot as an open report", 40.7507, -73.9931, "", "+1234567895",
		domain.StatusDuplicate, "Sanitation", 0, 0, 2 * day, 36 * hour},
	{domain.CategoryNoise, "Loud generator running overnight behind the depot", 40.7612, -73.9779, "", "night.owl@email.com",
		domain.StatusRejected, "Environmental Services", 5, 0, 6 * day, 5 * day},
}

func externalID(id int64) string {
	return fmt.Sprintf("TKT-2024-%03d", id)
}

func photoURL(size, color, label string) string {
	return fmt.Sprintf("https://via.placeholder.com/%s/%s/fff?text=%s", size, color, label)
}
