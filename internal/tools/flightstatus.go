package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erwiqair/skydesk/internal/airline"
)

// FlightStatusTool reports the live status of a flight from the flight table.
type FlightStatusTool struct{}

func NewFlightStatusTool() *FlightStatusTool {
	return &FlightStatusTool{}
}

func (t *FlightStatusTool) Name() string { return "get_flight_status" }
func (t *FlightStatusTool) Description() string {
	return "Get the current status of an ERWIQ Airlines flight (on time, delayed, cancelled, boarding). Flight numbers start with 'EQ'."
}
func (t *FlightStatusTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"flight_number": {
				"type": "string",
				"description": "The flight number (e.g., 'EQ101', 'EQ202')"
			}
		},
		"required": ["flight_number"],
		"additionalProperties": false
	}`)
}

func (t *FlightStatusTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	number, _ := params["flight_number"].(string)
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return "Error: flight_number is required", nil
	}

	flight, ok := airline.FlightByNumber(number)
	if !ok {
		return fmt.Sprintf("Flight %s not found. Please check the flight number. Our flights start with 'EQ' (e.g., EQ101, EQ202).", number), nil
	}
	return fmt.Sprintf("Flight %s (%s): Departure %s, Status: %s",
		number, flight.Route, flight.Departure, flight.Status), nil
}
