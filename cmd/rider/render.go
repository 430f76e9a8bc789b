package main

import (
	"fmt"
	"io"
	"strings"

	"busseat/internal/reservation"
)

const seatsPerRow = 4

var seatGlyph = map[reservation.SlotState]string{
	reservation.SlotFree:          " ",
	reservation.SlotSelected:      "*",
	reservation.SlotOccupiedMine:  "M",
	reservation.SlotOccupiedOther: "X",
	reservation.SlotOccupied:      "X",
	reservation.SlotUnknown:       "?",
}

// renderBoard draws the seat map, two seats either side of the aisle
func renderBoard(w io.Writer, board reservation.Board) {
	fmt.Fprintf(w, "Run %s: %d of %d seats free\n", board.RunID, board.FreeCount, board.Capacity)
	switch {
	case board.NeedsResync:
		fmt.Fprintln(w, "Seat view is out of date; run \"rider resync\" before booking.")
	case board.SoldOut:
		fmt.Fprintln(w, "SOLD OUT")
	}

	for _, row := range board.Rows(seatsPerRow) {
		var b strings.Builder
		for i, seat := range row {
			if i == seatsPerRow/2 {
				b.WriteString("   ")
			}
			fmt.Fprintf(&b, "[%2d%s]", seat.Number, seatGlyph[seat.State])
		}
		fmt.Fprintln(w, b.String())
	}
	fmt.Fprintln(w, "legend: [ n ] free  [ nX] taken  [ nM] yours")
}

func renderRuns(w io.Writer, runs []reservation.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No scheduled runs.")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %-10s -> %-10s  %s  %d seats\n",
			run.ID, run.StartingPoint, run.Destination,
			run.DepartureTime.Local().Format("Mon 02 Jan 15:04"), run.Capacity)
	}
}
