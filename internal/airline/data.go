// Package airline holds the ERWIQ Airlines reference data the support tools
// answer from: ticket prices, the flight table, and current bookings. The
// tables are read-only; the refund ledger is the only mutable piece and
// serialises its writers.
package airline

import (
	"strconv"
	"strings"
	"sync"
)

// Flight is one row of the flight status table.
type Flight struct {
	Route     string
	Departure string
	Status    string
}

// Booking is one row of the bookings table, keyed by PNR.
type Booking struct {
	Passenger string
	Flight    string
	Route     string
	Date      string
	Class     string
	Seat      string
	Status    string
	Meal      string
}

// destinationOrder preserves the canonical listing order for error messages.
var destinationOrder = []string{
	"mumbai", "delhi", "bangalore", "chennai", "kolkata", "hyderabad",
	"ahmedabad", "pune", "jaipur", "goa", "kochi", "lucknow",
}

// TicketPrices maps destination city → travel class → price in rupees.
var TicketPrices = map[string]map[string]int{
	"mumbai":    {"economy": 4999, "business": 12999, "first": 24999},
	"delhi":     {"economy": 5499, "business": 14999, "first": 28999},
	"bangalore": {"economy": 4499, "business": 11999, "first": 22999},
	"chennai":   {"economy": 4299, "business": 10999, "first": 21999},
	"kolkata":   {"economy": 5999, "business": 15999, "first": 29999},
	"hyderabad": {"economy": 4599, "business": 11499, "first": 22499},
	"ahmedabad": {"economy": 3999, "business": 9999, "first": 19999},
	"pune":      {"economy": 3499, "business": 8999, "first": 17999},
	"jaipur":    {"economy": 4199, "business": 10499, "first": 20999},
	"goa":       {"economy": 5499, "business": 13999, "first": 26999},
	"kochi":     {"economy": 4799, "business": 12499, "first": 23999},
	"lucknow":   {"economy": 3999, "business": 9499, "first": 18999},
}

// Flights is the live flight status table, keyed by flight number.
var Flights = map[string]Flight{
	"EQ101": {Route: "Mumbai → Delhi", Departure: "06:00", Status: "On Time"},
	"EQ202": {Route: "Delhi → Bangalore", Departure: "09:30", Status: "Delayed 30min"},
	"EQ303": {Route: "Chennai → Kolkata", Departure: "14:15", Status: "On Time"},
	"EQ404": {Route: "Hyderabad → Mumbai", Departure: "18:45", Status: "Cancelled"},
	"EQ505": {Route: "Bangalore → Goa", Departure: "11:00", Status: "Boarding"},
	"EQ606": {Route: "Pune → Jaipur", Departure: "07:30", Status: "On Time"},
	"EQ707": {Route: "Kochi → Chennai", Departure: "16:00", Status: "Delayed 1hr"},
	"EQ808": {Route: "Ahmedabad → Lucknow", Departure: "20:30", Status: "On Time"},
}

// Bookings is the current bookings table, keyed by PNR.
var Bookings = map[string]Booking{
	"ABC123": {
		Passenger: "Rahul Sharma", Flight: "EQ101", Route: "Mumbai → Delhi",
		Date: "2025-06-15", Class: "Business", Seat: "2A",
		Status: "Confirmed", Meal: "Vegetarian",
	},
	"XYZ789": {
		Passenger: "Priya Patel", Flight: "EQ303", Route: "Chennai → Kolkata",
		Date: "2025-06-20", Class: "Economy", Seat: "24F",
		Status: "Confirmed", Meal: "Standard",
	},
	"DEF456": {
		Passenger: "Amit Kumar", Flight: "EQ404", Route: "Hyderabad → Mumbai",
		Date: "2025-06-18", Class: "First", Seat: "1A",
		Status: "Cancelled - Refund Pending", Meal: "Jain",
	},
	"PQR999": {
		Passenger: "Sneha Reddy", Flight: "EQ505", Route: "Bangalore → Goa",
		Date: "2025-06-22", Class: "Economy", Seat: "15C",
		Status: "Confirmed", Meal: "Non-Vegetarian",
	},
	"LMN555": {
		Passenger: "Vikram Singh", Flight: "EQ606", Route: "Pune → Jaipur",
		Date: "2025-06-25", Class: "Business", Seat: "4B",
		Status: "Confirmed", Meal: "Vegetarian",
	},
}

// classMultiplier scales the refund base price per booking class.
var classMultiplier = map[string]float64{
	"Economy":  1,
	"Business": 2.5,
	"First":    5,
}

// refundBasePrice is the reference fare refunds are computed from.
const refundBasePrice = 4999

// PriceFor looks up the fare for a destination and travel class.
// City and class are matched case-insensitively.
func PriceFor(city, class string) (int, bool) {
	classes, ok := TicketPrices[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return 0, false
	}
	price, ok := classes[strings.ToLower(strings.TrimSpace(class))]
	return price, ok
}

// HasDestination reports whether the airline flies to city.
func HasDestination(city string) bool {
	_, ok := TicketPrices[strings.ToLower(strings.TrimSpace(city))]
	return ok
}

// Destinations returns all destination cities in canonical listing order.
func Destinations() []string {
	out := make([]string, len(destinationOrder))
	copy(out, destinationOrder)
	return out
}

// FlightByNumber looks up a flight, normalising the number to upper case.
func FlightByNumber(number string) (Flight, bool) {
	f, ok := Flights[strings.ToUpper(strings.TrimSpace(number))]
	return f, ok
}

// BookingByPNR looks up a booking, normalising the PNR to upper case.
func BookingByPNR(pnr string) (Booking, bool) {
	b, ok := Bookings[strings.ToUpper(strings.TrimSpace(pnr))]
	return b, ok
}

// RefundAmount computes the refund for a booking class: the base fare times
// the class multiplier. Unknown classes fall back to the economy multiplier.
func RefundAmount(class string) int {
	mult, ok := classMultiplier[class]
	if !ok {
		mult = 1
	}
	return int(refundBasePrice * mult)
}

// FormatINR renders n with thousand separators: 12999 → "12,999".
func FormatINR(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// RefundRequest is one processed refund, kept for audit.
type RefundRequest struct {
	PNR    string
	Reason string
	Amount int
	Status string
}

// RefundLedger records processed refunds. Safe for concurrent use.
type RefundLedger struct {
	mu       sync.Mutex
	requests map[string]RefundRequest
}

func NewRefundLedger() *RefundLedger {
	return &RefundLedger{requests: make(map[string]RefundRequest)}
}

// Add stores a refund request under its reference id.
func (l *RefundLedger) Add(ref string, req RefundRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests[ref] = req
}

// Get returns the refund request stored under ref.
func (l *RefundLedger) Get(ref string) (RefundRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.requests[ref]
	return req, ok
}

// Len returns the number of recorded refunds.
func (l *RefundLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}
