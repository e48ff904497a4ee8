package models

import (
	"encoding/json"
	"time"
)

// Ticket statuses. A ticket is seeded AVAILABLE and moves between the
// three states only through conditional or admin-forced transitions.
const (
	TicketAvailable = "AVAILABLE"
	TicketReserved  = "RESERVED"
	TicketPaid      = "PAID"
)

// Payment statuses. PENDING is the only non-terminal state.
const (
	PaymentPending  = "PENDING"
	PaymentApproved = "APPROVED"
	PaymentDeclined = "DECLINED"
)

// Ticket is one raffle entry, keyed by its two-digit number ("00".."99").
type Ticket struct {
	Number        string     `json:"number" db:"number"`
	Status        string     `json:"status" db:"status"`
	BuyerName     *string    `json:"buyer_name,omitempty" db:"buyer_name"`
	BuyerPhone    *string    `json:"buyer_phone,omitempty" db:"buyer_phone"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty" db:"reserved_until"`
	PaymentRef    *string    `json:"payment_ref,omitempty" db:"payment_ref"`
	ProofURL      *string    `json:"proof_url,omitempty" db:"proof_url"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Payment is one payment attempt tied to exactly one ticket. The
// transaction id doubles as the external reference sent to the gateway.
type Payment struct {
	TransactionID  string          `json:"transaction_id" db:"transaction_id"`
	TicketNumber   string          `json:"ticket_number" db:"ticket_number"`
	Amount         int64           `json:"amount" db:"amount"`
	Status         string          `json:"status" db:"status"`
	BuyerName      string          `json:"buyer_name" db:"buyer_name"`
	BuyerPhone     string          `json:"buyer_phone" db:"buyer_phone"`
	GatewayPayload json.RawMessage `json:"gateway_payload,omitempty" db:"gateway_payload"`
	PreferenceID   *string         `json:"preference_id,omitempty" db:"preference_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Drawing is the singleton record for the raffle outcome. Once finalized
// the winning number is immutable.
type Drawing struct {
	ID              int64      `json:"-" db:"id"`
	Finalized       bool       `json:"finalized" db:"finalized"`
	WinningNumber   *string    `json:"winning_number,omitempty" db:"winning_number"`
	FullDrawnNumber *string    `json:"full_drawn_number,omitempty" db:"full_drawn_number"`
	FinalizedAt     *time.Time `json:"finalized_at,omitempty" db:"finalized_at"`
}
