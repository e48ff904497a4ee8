package service

import (
	"context"
	"encoding/json"
	"time"

	"boletera/internal/external"
	"boletera/internal/models"
	"boletera/internal/repository"
)

// TicketStore is the slice of the ticket repository the lifecycle engine
// depends on. The repository satisfies it; tests use an in-memory fake.
type TicketStore interface {
	GetByNumber(ctx context.Context, number string) (*models.Ticket, error)
	ListAll(ctx context.Context) ([]models.Ticket, error)
	ListSoldOrReserved(ctx context.Context) ([]models.Ticket, error)
	ConditionalTransition(ctx context.Context, number, expectedStatus, newStatus string, fields repository.TransitionFields) error
	ForceMarkPaid(ctx context.Context, number string) error
	ForceRelease(ctx context.Context, number string) error
	ForceMarkReserved(ctx context.Context, number string) error
	BulkExpireReservations(ctx context.Context, now time.Time) (int64, error)
	Counts(ctx context.Context) (available, reserved, paid, total int, err error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	RecordOutcome(ctx context.Context, transactionID, status string, payload json.RawMessage) (bool, error)
	StorePayload(ctx context.Context, transactionID string, payload json.RawMessage) error
	SumApproved(ctx context.Context) (int64, error)
}

type DrawingStore interface {
	Get(ctx context.Context) (*models.Drawing, error)
	Finalize(ctx context.Context, winningNumber string, fullDrawnNumber *string, at time.Time) error
	Reset(ctx context.Context) error
}

// ListCache is the read-through cache for the public ticket list. It is
// optional; a nil cache disables caching but never affects correctness.
type ListCache interface {
	GetTicketListRaw(ctx context.Context) ([]byte, error)
	SetTicketList(ctx context.Context, list interface{}) error
	InvalidateTicketList(ctx context.Context) error
}

// Settings carries the raffle policy knobs the services need.
type Settings struct {
	TicketPrice  int64
	HoldDuration time.Duration
	AdminSecret  string
}

type Services struct {
	Tickets  *TicketService
	Payments *PaymentService
	Admin    *AdminService
}

func NewServices(tickets TicketStore, payments PaymentStore, drawing DrawingStore, gateway external.Gateway, listCache ListCache, settings Settings) *Services {
	return &Services{
		Tickets:  NewTicketService(tickets, payments, listCache, settings),
		Payments: NewPaymentService(tickets, payments, gateway, listCache, settings),
		Admin:    NewAdminService(tickets, drawing, listCache, settings),
	}
}
