package seats

// CreateBookingRequest claims one seat. SeatNumber is 1-based; it is a
// pointer so that an explicit 0 reaches the range check instead of
// failing as a missing field.
type CreateBookingRequest struct {
	RunID         string `json:"run_id" binding:"required"`
	SeatNumber    *int   `json:"seat_number" binding:"required"`
	RiderIdentity string `json:"rider_identity"`
}
