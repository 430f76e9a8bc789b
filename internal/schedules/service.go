package schedules

import (
	"context"
	"errors"
	"fmt"

	"busseat/internal/shared/constants"
	"busseat/pkg/cache"
	"busseat/pkg/logger"

	"github.com/google/uuid"
)

var ErrInvalidSchedule = errors.New("arrival time must be after departure time")

type Service interface {
	CreateBus(ctx context.Context, operatorID uuid.UUID, req CreateBusRequest) (*Bus, error)
	ListBuses(ctx context.Context) ([]Bus, error)
	CreateRun(ctx context.Context, req CreateScheduleRequest) (*ScheduledRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*ScheduledRun, error)
	ListRuns(ctx context.Context) ([]ScheduledRun, error)
}

type service struct {
	repo   Repository
	cache  cache.Service
	logger *logger.Logger
}

func NewService(repo Repository, cacheService cache.Service) Service {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	return &service{repo: repo, cache: cacheService, logger: logger.GetDefault()}
}

// invalidate drops a catalog listing. The write has already committed, so a
// failure only leaves the listing stale until its TTL runs out.
func (s *service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.ErrorWithContext(ctx, "Failed to invalidate catalog cache", err, map[string]interface{}{
			"key": key,
		})
	}
}

func (s *service) CreateBus(ctx context.Context, operatorID uuid.UUID, req CreateBusRequest) (*Bus, error) {
	bus := &Bus{
		OperatorID: operatorID,
		Name:       req.Name,
		TotalSeats: req.TotalSeats,
	}
	if err := s.repo.CreateBus(ctx, bus); err != nil {
		return nil, fmt.Errorf("failed to create bus: %w", err)
	}
	s.invalidate(ctx, constants.CACHE_KEY_BUSES_LIST)
	return bus, nil
}

func (s *service) ListBuses(ctx context.Context) ([]Bus, error) {
	var buses []Bus
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_BUSES_LIST, constants.TTL_BUSES_LIST, func() (interface{}, error) {
		return s.repo.ListBuses(ctx)
	}, &buses)
	return buses, err
}

func (s *service) CreateRun(ctx context.Context, req CreateScheduleRequest) (*ScheduledRun, error) {
	if !req.ArrivalTime.After(req.DepartureTime) {
		return nil, ErrInvalidSchedule
	}

	busID, err := uuid.Parse(req.BusID)
	if err != nil {
		return nil, fmt.Errorf("invalid bus ID: %w", err)
	}

	bus, err := s.repo.GetBus(ctx, busID)
	if err != nil {
		return nil, err
	}

	run := &ScheduledRun{
		BusID:         bus.ID,
		StartingPoint: req.StartingPoint,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime.UTC(),
		ArrivalTime:   req.ArrivalTime.UTC(),
		Capacity:      bus.TotalSeats,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.invalidate(ctx, constants.CACHE_KEY_SCHEDULES_LIST)
	return run, nil
}

func (s *service) GetRun(ctx context.Context, id uuid.UUID) (*ScheduledRun, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *service) ListRuns(ctx context.Context) ([]ScheduledRun, error) {
	var runs []ScheduledRun
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_SCHEDULES_LIST, constants.TTL_SCHEDULES_LIST, func() (interface{}, error) {
		return s.repo.ListRuns(ctx)
	}, &runs)
	return runs, err
}
