package schedules

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound = errors.New("scheduled run not found")
	ErrBusNotFound = errors.New("bus not found")
)

type Repository interface {
	CreateBus(ctx context.Context, bus *Bus) error
	GetBus(ctx context.Context, id uuid.UUID) (*Bus, error)
	ListBuses(ctx context.Context) ([]Bus, error)

	CreateRun(ctx context.Context, run *ScheduledRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*ScheduledRun, error)
	ListRuns(ctx context.Context) ([]ScheduledRun, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBus(ctx context.Context, bus *Bus) error {
	return r.db.WithContext(ctx).Create(bus).Error
}

func (r *repository) GetBus(ctx context.Context, id uuid.UUID) (*Bus, error) {
	var bus Bus
	err := r.db.WithContext(ctx).First(&bus, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &bus, nil
}

func (r *repository) ListBuses(ctx context.Context) ([]Bus, error) {
	var buses []Bus
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&buses).Error
	return buses, err
}

func (r *repository) CreateRun(ctx context.Context, run *ScheduledRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) GetRun(ctx context.Context, id uuid.UUID) (*ScheduledRun, error) {
	var run ScheduledRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (r *repository) ListRuns(ctx context.Context) ([]ScheduledRun, error) {
	var runs []ScheduledRun
	err := r.db.WithContext(ctx).Order("departure_time ASC").Find(&runs).Error
	return runs, err
}
