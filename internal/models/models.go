package models

import "time"

// BuyTicketRequest carries the buyer fields of a buy/reserve call. The
// optional proof image arrives as a multipart file, not in this struct.
type BuyTicketRequest struct {
	Name  string `json:"name" form:"name"`
	Phone string `json:"phone" form:"phone"`
}

// BuyTicketResponse reports the outcome of a buy/reserve call.
type BuyTicketResponse struct {
	Number        string     `json:"number"`
	Status        string     `json:"status"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	Price         int64      `json:"price"`
}

// TicketStats aggregates ticket counts and the approved amount collected.
type TicketStats struct {
	Available       int   `json:"available"`
	Reserved        int   `json:"reserved"`
	Paid            int   `json:"paid"`
	Total           int   `json:"total"`
	AmountCollected int64 `json:"amount_collected"`
}

// PaymentIntentRequest starts a gateway payment for a reserved ticket.
type PaymentIntentRequest struct {
	TicketNumber string `json:"ticket_number" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
}

// PaymentIntentResponse returns the gateway handle the buyer is sent to.
type PaymentIntentResponse struct {
	TransactionID string `json:"transaction_id"`
	TicketNumber  string `json:"ticket_number"`
	Amount        int64  `json:"amount"`
	PaymentURL    string `json:"payment_url"`
	PreferenceID  string `json:"preference_id,omitempty"`
}

// FinalizeDrawingRequest records the winning number. FullDrawnNumber is
// the optional four-digit external lottery number.
type FinalizeDrawingRequest struct {
	WinningNumber   string `json:"winning_number" binding:"required"`
	FullDrawnNumber string `json:"full_drawn_number"`
}

// MaskedTicket is the public view of a sold or reserved ticket.
type MaskedTicket struct {
	Number      string    `json:"number"`
	Status      string    `json:"status"`
	BuyerName   string    `json:"buyer_name"`
	BuyerPhone  string    `json:"buyer_phone"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// WinnerInfo describes the winning ticket once the drawing is finalized.
type WinnerInfo struct {
	Number     string `json:"number"`
	Sold       bool   `json:"sold"`
	BuyerName  string `json:"buyer_name,omitempty"`
	BuyerPhone string `json:"buyer_phone,omitempty"`
}

// PublicResults is the public drawing results payload.
type PublicResults struct {
	Finalized       bool           `json:"finalized"`
	WinningNumber   string         `json:"winning_number,omitempty"`
	FullDrawnNumber string         `json:"full_drawn_number,omitempty"`
	FinalizedAt     *time.Time     `json:"finalized_at,omitempty"`
	Winner          *WinnerInfo    `json:"winner,omitempty"`
	Tickets         []MaskedTicket `json:"tickets"`
}
