package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erwiqair/skydesk/internal/airline"
	"github.com/erwiqair/skydesk/internal/shared/stringutils"
)

// TicketPriceTool quotes the fare for a destination and travel class from
// the airline price table.
type TicketPriceTool struct{}

func NewTicketPriceTool() *TicketPriceTool {
	return &TicketPriceTool{}
}

func (t *TicketPriceTool) Name() string { return "get_ticket_price" }
func (t *TicketPriceTool) Description() string {
	return "Get the price of a flight ticket to a destination city in India. Use this when a customer asks about ticket prices or how much it costs to fly somewhere."
}
func (t *TicketPriceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"destination_city": {
				"type": "string",
				"description": "The Indian city the customer wants to fly to (e.g., 'Mumbai', 'Delhi', 'Bangalore', 'Goa')"
			},
			"travel_class": {
				"type": "string",
				"enum": ["economy", "business", "first"],
				"description": "The travel class. Defaults to economy if not specified."
			}
		},
		"required": ["destination_city"],
		"additionalProperties": false
	}`)
}

func (t *TicketPriceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	city, _ := params["destination_city"].(string)
	if strings.TrimSpace(city) == "" {
		return "Error: destination_city is required", nil
	}
	class, _ := params["travel_class"].(string)
	if class == "" {
		class = "economy"
	}
	class = strings.ToLower(strings.TrimSpace(class))

	if !airline.HasDestination(city) {
		available := strings.Join(airline.Destinations(), ", ")
		return fmt.Sprintf("Sorry, we don't fly to %s. Available destinations: %s", city, available), nil
	}
	price, ok := airline.PriceFor(city, class)
	if !ok {
		return "Invalid class. Choose from: economy, business, first", nil
	}
	return fmt.Sprintf("₹%s for %s class to %s",
		airline.FormatINR(price), stringutils.Title(class), stringutils.Title(city)), nil
}
