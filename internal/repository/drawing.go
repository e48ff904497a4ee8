package repository

import (
	"context"
	"time"

	"boletera/internal/database"
	apperrors "boletera/internal/errors"
	"boletera/internal/models"
)

type DrawingRepository struct {
	db *database.DB
}

func NewDrawingRepository(db *database.DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// Get returns the singleton drawing record, lazily creating it with
// finalized=false on first access.
func (r *DrawingRepository) Get(ctx context.Context) (*models.Drawing, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	drawing := &models.Drawing{}
	query := `SELECT id, finalized, winning_number, full_drawn_number, finalized_at FROM drawing WHERE id = 1`

	err := r.db.QueryRowContext(ctx, query).Scan(
		&drawing.ID,
		&drawing.Finalized,
		&drawing.WinningNumber,
		&drawing.FullDrawnNumber,
		&drawing.FinalizedAt,
	)
	return drawing, err
}

// Finalize records the winner exactly once. The finalized guard in the
// WHERE clause makes a second call fail with ErrAlreadyFinalized without
// touching the stored winner.
func (r *DrawingRepository) Finalize(ctx context.Context, winningNumber string, fullDrawnNumber *string, at time.Time) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	query := `
		UPDATE drawing
		SET finalized = TRUE, winning_number = $1, full_drawn_number = $2, finalized_at = $3
		WHERE id = 1 AND finalized = FALSE`

	res, err := r.db.ExecContext(ctx, query, winningNumber, fullDrawnNumber, at)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrAlreadyFinalized
	}

	return nil
}

// Reset deletes the drawing record entirely, returning the system to its
// pre-drawing state. Tickets keep their own states.
func (r *DrawingRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM drawing WHERE id = 1`)
	return err
}

func (r *DrawingRepository) ensure(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO drawing (id, finalized) VALUES (1, FALSE) ON CONFLICT (id) DO NOTHING`)
	return err
}
