package schedules

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the catalog in process. It backs the memory seat
// store in development and the package tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	buses map[uuid.UUID]Bus
	runs  map[uuid.UUID]ScheduledRun
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		buses: make(map[uuid.UUID]Bus),
		runs:  make(map[uuid.UUID]ScheduledRun),
	}
}

func (m *MemoryRepository) CreateBus(_ context.Context, bus *Bus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bus.ID == uuid.Nil {
		bus.ID = uuid.New()
	}
	bus.CreatedAt = time.Now().UTC()
	m.buses[bus.ID] = *bus
	return nil
}

func (m *MemoryRepository) GetBus(_ context.Context, id uuid.UUID) (*Bus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bus, ok := m.buses[id]
	if !ok {
		return nil, ErrBusNotFound
	}
	return &bus, nil
}

func (m *MemoryRepository) ListBuses(_ context.Context) ([]Bus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Bus, 0, len(m.buses))
	for _, b := range m.buses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) CreateRun(_ context.Context, run *ScheduledRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryRepository) GetRun(_ context.Context, id uuid.UUID) (*ScheduledRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (m *MemoryRepository) ListRuns(_ context.Context) ([]ScheduledRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ScheduledRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

// AddRun registers a bus and a run with the given capacity in one call
func (m *MemoryRepository) AddRun(capacity int) ScheduledRun {
	bus := &Bus{Name: "Test Bus", TotalSeats: capacity}
	_ = m.CreateBus(context.Background(), bus)
	departure := time.Now().Add(24 * time.Hour).UTC()
	run := &ScheduledRun{
		BusID:         bus.ID,
		StartingPoint: "Pune",
		Destination:   "Mumbai",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(3 * time.Hour),
		Capacity:      capacity,
	}
	_ = m.CreateRun(context.Background(), run)
	return *run
}
