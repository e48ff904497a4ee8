package repository

import (
	"context"
	"database/sql"
	"time"

	"boletera/internal/database"
	apperrors "boletera/internal/errors"
	"boletera/internal/models"
)

const ticketColumns = `number, status, buyer_name, buyer_phone, reserved_until, payment_ref, proof_url, created_at, updated_at`

// TransitionFields is the full set of mutable ticket columns written by a
// transition. Nil pointers clear the column, which is how a release wipes
// buyer, expiry and payment linkage in the same statement.
type TransitionFields struct {
	BuyerName     *string
	BuyerPhone    *string
	ReservedUntil *time.Time
	PaymentRef    *string
	ProofURL      *string
}

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) GetByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number = $1`

	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&ticket.Number,
		&ticket.Status,
		&ticket.BuyerName,
		&ticket.BuyerPhone,
		&ticket.ReservedUntil,
		&ticket.PaymentRef,
		&ticket.ProofURL,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) ListAll(ctx context.Context) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY number`
	return r.queryTickets(ctx, query)
}

func (r *TicketRepository) ListSoldOrReserved(ctx context.Context) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status IN ('RESERVED', 'PAID') ORDER BY number`
	return r.queryTickets(ctx, query)
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		err := rows.Scan(
			&t.Number,
			&t.Status,
			&t.BuyerName,
			&t.BuyerPhone,
			&t.ReservedUntil,
			&t.PaymentRef,
			&t.ProofURL,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// ConditionalTransition moves a ticket from expectedStatus to newStatus as
// a single compare-and-swap UPDATE. Of N concurrent attempts on the same
// number at most one can match the WHERE clause; the rest see
// ErrNotAvailable and must not be retried server-side.
func (r *TicketRepository) ConditionalTransition(ctx context.Context, number, expectedStatus, newStatus string, fields TransitionFields) error {
	query := `
		UPDATE tickets
		SET status = $3, buyer_name = $4, buyer_phone = $5, reserved_until = $6,
		    payment_ref = $7, proof_url = $8, updated_at = NOW()
		WHERE number = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, number, expectedStatus, newStatus,
		fields.BuyerName, fields.BuyerPhone, fields.ReservedUntil, fields.PaymentRef, fields.ProofURL)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a lost race from an unknown number.
		existing, err := r.GetByNumber(ctx, number)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrNotAvailable
	}

	return nil
}

// ForceMarkPaid unconditionally marks a ticket PAID, clearing any expiry.
// Admin path only; still a single atomic statement.
func (r *TicketRepository) ForceMarkPaid(ctx context.Context, number string) error {
	query := `
		UPDATE tickets
		SET status = 'PAID', reserved_until = NULL, updated_at = NOW()
		WHERE number = $1`
	return r.force(ctx, query, number)
}

// ForceRelease unconditionally returns a ticket to AVAILABLE, wiping
// buyer, expiry, proof and payment linkage.
func (r *TicketRepository) ForceRelease(ctx context.Context, number string) error {
	query := `
		UPDATE tickets
		SET status = 'AVAILABLE', buyer_name = NULL, buyer_phone = NULL,
		    reserved_until = NULL, payment_ref = NULL, proof_url = NULL, updated_at = NOW()
		WHERE number = $1`
	return r.force(ctx, query, number)
}

// ForceMarkReserved unconditionally marks a ticket RESERVED, keeping the
// existing buyer and proof. Used to undo an incorrect proof-based PAID.
func (r *TicketRepository) ForceMarkReserved(ctx context.Context, number string) error {
	query := `
		UPDATE tickets
		SET status = 'RESERVED', updated_at = NOW()
		WHERE number = $1`
	return r.force(ctx, query, number)
}

func (r *TicketRepository) force(ctx context.Context, query, number string) error {
	res, err := r.db.ExecContext(ctx, query, number)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// BulkExpireReservations releases every reservation whose hold has passed
// in one set-based statement. The status guard in the WHERE clause keeps
// the sweep from touching tickets that transitioned away from RESERVED
// between tick and write.
func (r *TicketRepository) BulkExpireReservations(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tickets
		SET status = 'AVAILABLE', buyer_name = NULL, buyer_phone = NULL,
		    reserved_until = NULL, payment_ref = NULL, proof_url = NULL, updated_at = NOW()
		WHERE status = 'RESERVED' AND reserved_until IS NOT NULL AND reserved_until < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// Counts returns ticket totals per status.
func (r *TicketRepository) Counts(ctx context.Context) (available, reserved, paid, total int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'AVAILABLE'),
			COUNT(*) FILTER (WHERE status = 'RESERVED'),
			COUNT(*) FILTER (WHERE status = 'PAID'),
			COUNT(*)
		FROM tickets`

	err = r.db.QueryRowContext(ctx, query).Scan(&available, &reserved, &paid, &total)
	return
}
