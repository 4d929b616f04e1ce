package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erwiqair/skydesk/internal/airline"
)

// BookingLookupTool fetches a booking record by its PNR reference.
type BookingLookupTool struct{}

func NewBookingLookupTool() *BookingLookupTool {
	return &BookingLookupTool{}
}

func (t *BookingLookupTool) Name() string { return "lookup_booking" }
func (t *BookingLookupTool) Description() string {
	return "Look up a booking using the PNR (booking reference). Use this when a customer wants to check their booking details."
}
func (t *BookingLookupTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pnr": {
				"type": "string",
				"description": "The 6-character booking reference (e.g., 'ABC123')"
			}
		},
		"required": ["pnr"],
		"additionalProperties": false
	}`)
}

func (t *BookingLookupTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	pnr, _ := params["pnr"].(string)
	pnr = strings.ToUpper(strings.TrimSpace(pnr))
	if pnr == "" {
		return "Error: pnr is required", nil
	}

	booking, ok := airline.BookingByPNR(pnr)
	if !ok {
		return fmt.Sprintf("Booking %s not found. Please check your booking reference.", pnr), nil
	}
	return fmt.Sprintf(`Booking %s:
- Passenger: %s
- Flight: %s (%s)
- Date: %s
- Class: %s, Seat: %s
- Status: %s
- Meal Preference: %s`,
		pnr, booking.Passenger, booking.Flight, booking.Route, booking.Date,
		booking.Class, booking.Seat, booking.Status, booking.Meal), nil
}
