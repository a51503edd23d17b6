package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Venue name stamped on every ticket.
const venue = "ShowZa Cinema"

// TicketPayload is the verification payload encoded into the scannable
// ticket: everything the door scanner needs to validate entry.
type TicketPayload struct {
	BookingID        string    `json:"bookingId"`
	MovieTitle       string    `json:"movieTitle"`
	ShowDate         time.Time `json:"showDate"`
	Seats            []string  `json:"seats"`
	UserName         string    `json:"userName"`
	UserEmail        string    `json:"userEmail"`
	AmountCents      int64     `json:"amountCents"`
	Venue            string    `json:"venue"`
	VerificationCode string    `json:"verificationCode"`
}

// VerificationCode derives the human-readable ticket identifier from the
// booking id: "SZ-" plus the last 8 characters, uppercased.  Deterministic,
// so re-rendering a ticket always yields the same code.
func VerificationCode(bookingID string) string {
	tail := bookingID
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "SZ-" + strings.ToUpper(tail)
}

// RenderTicketQR encodes the payload as JSON inside a 300px PNG QR code with
// medium error correction.
func RenderTicketQR(p TicketPayload) ([]byte, error) {
	p.Venue = venue
	if p.VerificationCode == "" {
		p.VerificationCode = VerificationCode(p.BookingID)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 300)
	if err != nil {
		return nil, fmt.Errorf("encode ticket qr: %w", err)
	}
	return png, nil
}
