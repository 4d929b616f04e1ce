package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/erwiqair/skydesk/internal/airline"
)

// RefundTool approves a refund for a booking and records it in the ledger.
// The refund amount is derived from the booking class, not a live fare.
type RefundTool struct {
	ledger *airline.RefundLedger
}

func NewRefundTool(ledger *airline.RefundLedger) *RefundTool {
	return &RefundTool{ledger: ledger}
}

func (t *RefundTool) Name() string { return "process_refund" }
func (t *RefundTool) Description() string {
	return "Process a refund request for a cancelled or unwanted booking. Use this when a customer wants to cancel and get a refund."
}
func (t *RefundTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pnr": {
				"type": "string",
				"description": "The booking reference to refund"
			},
			"reason": {
				"type": "string",
				"description": "The reason for the refund request"
			}
		},
		"required": ["pnr", "reason"],
		"additionalProperties": false
	}`)
}

func (t *RefundTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	pnr, _ := params["pnr"].(string)
	pnr = strings.ToUpper(strings.TrimSpace(pnr))
	if pnr == "" {
		return "Error: pnr is required", nil
	}
	reason, _ := params["reason"].(string)

	booking, ok := airline.BookingByPNR(pnr)
	if !ok {
		return fmt.Sprintf("Cannot process refund: Booking %s not found.", pnr), nil
	}
	if strings.Contains(booking.Status, "Cancelled") {
		return fmt.Sprintf("Booking %s is already cancelled. Refund is being processed.", pnr), nil
	}

	ref := fmt.Sprintf("REF%06d", 100000+rand.IntN(900000))
	amount := airline.RefundAmount(booking.Class)
	t.ledger.Add(ref, airline.RefundRequest{
		PNR:    pnr,
		Reason: reason,
		Amount: amount,
		Status: "Approved",
	})

	return fmt.Sprintf(`Refund Request Processed:
- Reference: %s
- Booking: %s
- Passenger: %s
- Refund Amount: ₹%s
- Status: Approved - Will be credited in 5-7 business days
- Reason: %s`,
		ref, pnr, booking.Passenger, airline.FormatINR(amount), reason), nil
}
