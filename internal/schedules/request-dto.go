package schedules

import "time"

type CreateBusRequest struct {
	Name       string `json:"name" binding:"required"`
	TotalSeats int    `json:"total_seats" binding:"required,min=1,max=100"`
}

type CreateScheduleRequest struct {
	BusID         string    `json:"bus_id" binding:"required,uuid"`
	StartingPoint string    `json:"starting_point" binding:"required"`
	Destination   string    `json:"destination" binding:"required"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
}
