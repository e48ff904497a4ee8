package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"boletera/internal/database"
	"boletera/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (transaction_id, ticket_number, amount, status, buyer_name, buyer_phone, preference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.TransactionID,
		payment.TicketNumber,
		payment.Amount,
		payment.Status,
		payment.BuyerName,
		payment.BuyerPhone,
		payment.PreferenceID,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT transaction_id, ticket_number, amount, status, buyer_name, buyer_phone,
		       gateway_payload, preference_id, created_at, updated_at
		FROM payments
		WHERE transaction_id = $1`

	// gateway_payload is NULL until the first notification arrives.
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&payment.TransactionID,
		&payment.TicketNumber,
		&payment.Amount,
		&payment.Status,
		&payment.BuyerName,
		&payment.BuyerPhone,
		&payload,
		&payment.PreferenceID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	payment.GatewayPayload = payload

	return payment, err
}

// RecordOutcome moves a payment from PENDING to its terminal status and
// stores the raw gateway payload for audit. The status guard makes a
// replayed notification a no-op: it reports applied=false and leaves the
// first outcome in place.
func (r *PaymentRepository) RecordOutcome(ctx context.Context, transactionID, status string, payload json.RawMessage) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, gateway_payload = $3, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'PENDING'`

	res, err := r.db.ExecContext(ctx, query, transactionID, status, payload)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StorePayload records an in-process gateway payload without changing the
// payment status.
func (r *PaymentRepository) StorePayload(ctx context.Context, transactionID string, payload json.RawMessage) error {
	query := `
		UPDATE payments
		SET gateway_payload = $2, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'PENDING'`

	_, err := r.db.ExecContext(ctx, query, transactionID, payload)
	return err
}

// SumApproved returns the total amount of approved payments.
func (r *PaymentRepository) SumApproved(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'APPROVED'`
	err := r.db.QueryRowContext(ctx, query).Scan(&total)
	return total, err
}
