package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "boletera/internal/errors"
	"boletera/internal/models"
)

var fullDrawnNumberPattern = regexp.MustCompile(`^[0-9]{4}$`)

// AdminService guards forced transitions and the drawing finalization
// behind the shared admin secret, and builds the public results view.
type AdminService struct {
	tickets TicketStore
	drawing DrawingStore
	cache   ListCache
	secret  []byte
}

func NewAdminService(tickets TicketStore, drawing DrawingStore, cache ListCache, settings Settings) *AdminService {
	return &AdminService{
		tickets: tickets,
		drawing: drawing,
		cache:   cache,
		secret:  []byte(settings.AdminSecret),
	}
}

// Authorize compares the caller-supplied secret in constant time. An
// empty configured secret disables the admin surface entirely. The error
// never reveals which part of the request was wrong.
func (s *AdminService) Authorize(provided string) error {
	if len(s.secret) == 0 {
		return apperrors.ErrAccessDenied
	}
	if subtle.ConstantTimeCompare(s.secret, []byte(provided)) != 1 {
		return apperrors.ErrAccessDenied
	}
	return nil
}

// ListSoldOrReserved returns every non-available ticket with unredacted
// buyer detail. Admin-only view.
func (s *AdminService) ListSoldOrReserved(ctx context.Context, secret string) ([]models.Ticket, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListSoldOrReserved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *AdminService) ForceMarkPaid(ctx context.Context, secret, number string) error {
	return s.force(ctx, secret, number, s.tickets.ForceMarkPaid)
}

func (s *AdminService) ForceRelease(ctx context.Context, secret, number string) error {
	return s.force(ctx, secret, number, s.tickets.ForceRelease)
}

func (s *AdminService) ForceMarkReserved(ctx context.Context, secret, number string) error {
	return s.force(ctx, secret, number, s.tickets.ForceMarkReserved)
}

func (s *AdminService) force(ctx context.Context, secret, number string, op func(context.Context, string) error) error {
	if err := s.Authorize(secret); err != nil {
		return err
	}
	if err := ValidateNumber(number); err != nil {
		return err
	}
	if err := op(ctx, number); err != nil {
		return err
	}
	s.invalidateList(ctx)
	return nil
}

// FinalizeDrawing records the winner once. The optional full drawn
// number must be four digits ending in the winning number.
func (s *AdminService) FinalizeDrawing(ctx context.Context, secret string, req *models.FinalizeDrawingRequest) (*models.Drawing, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}
	if err := ValidateNumber(req.WinningNumber); err != nil {
		return nil, err
	}

	var fullDrawn *string
	if req.FullDrawnNumber != "" {
		if !fullDrawnNumberPattern.MatchString(req.FullDrawnNumber) {
			return nil, apperrors.ErrInvalidNumber
		}
		if !strings.HasSuffix(req.FullDrawnNumber, req.WinningNumber) {
			return nil, apperrors.ErrInvalidNumber
		}
		full := req.FullDrawnNumber
		fullDrawn = &full
	}

	if err := s.drawing.Finalize(ctx, req.WinningNumber, fullDrawn, time.Now()); err != nil {
		return nil, err
	}

	return s.drawing.Get(ctx)
}

// ResetDrawing deletes the drawing record, returning the raffle to its
// pre-drawing state. Distinct from finalization, which is one-way.
func (s *AdminService) ResetDrawing(ctx context.Context, secret string) error {
	if err := s.Authorize(secret); err != nil {
		return err
	}
	return s.drawing.Reset(ctx)
}

// DrawingStatus is the public finalized/winner view.
func (s *AdminService) DrawingStatus(ctx context.Context) (*models.Drawing, error) {
	return s.drawing.Get(ctx)
}

// PublicResults builds the public drawing results: every non-available
// ticket with masked buyer data, plus the winner resolution once the
// drawing is finalized.
func (s *AdminService) PublicResults(ctx context.Context) (*models.PublicResults, error) {
	drawing, err := s.drawing.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get drawing: %w", err)
	}

	tickets, err := s.tickets.ListSoldOrReserved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	results := &models.PublicResults{
		Finalized: drawing.Finalized,
		Tickets:   make([]models.MaskedTicket, 0, len(tickets)),
	}
	if drawing.WinningNumber != nil {
		results.WinningNumber = *drawing.WinningNumber
	}
	if drawing.FullDrawnNumber != nil {
		results.FullDrawnNumber = *drawing.FullDrawnNumber
	}
	results.FinalizedAt = drawing.FinalizedAt

	var winnerTicket *models.Ticket
	for i := range tickets {
		t := &tickets[i]
		results.Tickets = append(results.Tickets, models.MaskedTicket{
			Number:      t.Number,
			Status:      t.Status,
			BuyerName:   maskName(deref(t.BuyerName)),
			BuyerPhone:  maskPhone(deref(t.BuyerPhone)),
			PurchasedAt: t.UpdatedAt,
		})
		if drawing.Finalized && drawing.WinningNumber != nil && t.Number == *drawing.WinningNumber {
			winnerTicket = t
		}
	}

	if drawing.Finalized && drawing.WinningNumber != nil {
		winner := &models.WinnerInfo{Number: *drawing.WinningNumber}
		if winnerTicket != nil {
			winner.Sold = true
			winner.BuyerName = maskName(deref(winnerTicket.BuyerName))
			winner.BuyerPhone = maskPhone(deref(winnerTicket.BuyerPhone))
		}
		results.Winner = winner
	}

	return results, nil
}

func (s *AdminService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateTicketList(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
