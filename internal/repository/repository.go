package repository

import "boletera/internal/database"

// Repositories aggregates all data access objects.
type Repositories struct {
	Tickets  *TicketRepository
	Payments *PaymentRepository
	Drawing  *DrawingRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Tickets:  NewTicketRepository(db),
		Payments: NewPaymentRepository(db),
		Drawing:  NewDrawingRepository(db),
	}
}
