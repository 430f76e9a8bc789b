package seats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"busseat/internal/shared/middleware"
	"busseat/pkg/logger"

	"github.com/google/uuid"
)

var ErrInvalidRunID = errors.New("invalid run ID")

// BookingPublisher announces confirmed bookings to other systems
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, booking *BookingResponse) error
}

type Service interface {
	GetSeats(ctx context.Context, runID string) (SeatVector, error)
	Book(ctx context.Context, req CreateBookingRequest, identity middleware.Identity) (*BookingResponse, error)
	Occupancy(ctx context.Context, runID string) (*OccupancyResponse, error)
}

type service struct {
	store     Store
	runs      RunLookup
	publisher BookingPublisher
	logger    *logger.Logger
}

func NewService(store Store, runs RunLookup, publisher BookingPublisher) Service {
	return &service{
		store:     store,
		runs:      runs,
		publisher: publisher,
		logger:    logger.GetDefault(),
	}
}

func parseRunID(runID string) (uuid.UUID, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidRunID, runID)
	}
	return id, nil
}

// riderFromIdentity binds a booking to the credential that made it. A rider
// identity in the body must name the same user as the credential.
func riderFromIdentity(identity middleware.Identity, claimed string) (Rider, error) {
	id, err := uuid.Parse(identity.UserID)
	if err != nil {
		return Rider{}, ErrUnauthorized
	}
	claimed = strings.TrimSpace(claimed)
	if claimed != "" && claimed != identity.Username {
		return Rider{}, fmt.Errorf("rider identity does not match credential: %w", ErrUnauthorized)
	}
	return Rider{ID: id, Name: identity.Username}, nil
}

func (s *service) GetSeats(ctx context.Context, runID string) (SeatVector, error) {
	id, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}
	return s.store.GetSeats(ctx, id)
}

func (s *service) Book(ctx context.Context, req CreateBookingRequest, identity middleware.Identity) (*BookingResponse, error) {
	runID, err := parseRunID(req.RunID)
	if err != nil {
		return nil, err
	}
	if req.SeatNumber == nil {
		return nil, ErrInvalidSeat
	}
	seatNumber := *req.SeatNumber

	rider, err := riderFromIdentity(identity, req.RiderIdentity)
	if err != nil {
		return nil, err
	}

	booking, err := s.store.ClaimSeat(ctx, runID, seatNumber-1, rider)
	if err != nil {
		if errors.Is(err, ErrSeatConflict) {
			s.logger.LogSeatConflict(ctx, runID.String(), rider.ID.String(), seatNumber)
		}
		return nil, err
	}

	s.logger.LogSeatClaimed(ctx, booking.ID.String(), runID.String(), rider.ID.String(), booking.SeatNumber())
	log := s.logger.WithRider(rider.ID.String())

	resp := &BookingResponse{
		ID:            booking.ID,
		RiderID:       booking.RiderID,
		RiderIdentity: booking.RiderName,
		RunID:         booking.RunID,
		SeatNumber:    booking.SeatNumber(),
		Status:        booking.Status,
		CreatedAt:     booking.CreatedAt,
	}

	// The booking is already durable; missing run details only thin the response
	if run, err := s.runs.GetRun(ctx, runID); err == nil {
		resp.BusID = run.BusID
		resp.StartingPoint = run.StartingPoint
		resp.Destination = run.Destination
		resp.DepartureTime = run.DepartureTime
	} else {
		log.ErrorWithContext(ctx, "Failed to load run details for booking", err, map[string]interface{}{
			"booking_id": booking.ID.String(),
		})
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBookingConfirmed(ctx, resp); err != nil {
			log.ErrorWithContext(ctx, "Failed to publish booking confirmation", err, map[string]interface{}{
				"booking_id": booking.ID.String(),
			})
		}
	}

	return resp, nil
}

func (s *service) Occupancy(ctx context.Context, runID string) (*OccupancyResponse, error) {
	id, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}

	vector, err := s.store.GetSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	bookings, err := s.store.CountBookings(ctx, id)
	if err != nil {
		return nil, err
	}

	return &OccupancyResponse{
		RunID:    id,
		Capacity: len(vector),
		Bookings: bookings,
		Occupied: vector.OccupiedCount(),
		Free:     vector.FreeCount(),
	}, nil
}
