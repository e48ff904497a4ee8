package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "boletera/internal/errors"
	"boletera/internal/logger"
	"boletera/internal/models"
	"boletera/internal/repository"
)

var ticketNumberPattern = regexp.MustCompile(`^[0-9]{2}$`)

// TicketService runs the ticket lifecycle state machine over
// {AVAILABLE, RESERVED, PAID}. Every transition goes through the store's
// conditional update; the service never decides availability from a read.
type TicketService struct {
	tickets  TicketStore
	payments PaymentStore
	cache    ListCache
	settings Settings
}

func NewTicketService(tickets TicketStore, payments PaymentStore, cache ListCache, settings Settings) *TicketService {
	return &TicketService{
		tickets:  tickets,
		payments: payments,
		cache:    cache,
		settings: settings,
	}
}

// ValidateNumber rejects anything that is not an exact two-digit number
// before the store is touched.
func ValidateNumber(number string) error {
	if !ticketNumberPattern.MatchString(number) {
		return apperrors.ErrInvalidNumber
	}
	return nil
}

// Buy claims a ticket for a buyer. Without a proof reference the ticket
// is held: AVAILABLE -> RESERVED with an expiring hold. With a proof
// upload the reservation step is skipped: AVAILABLE -> PAID, no expiry.
// A lost race surfaces as ErrNotAvailable and is never retried here.
func (s *TicketService) Buy(ctx context.Context, number string, req *models.BuyTicketRequest, proofURL string) (*models.BuyTicketResponse, error) {
	if err := ValidateNumber(number); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, apperrors.ErrMissingBuyerFields
	}

	resp := &models.BuyTicketResponse{
		Number: number,
		Price:  s.settings.TicketPrice,
	}

	if proofURL == "" {
		reservedUntil := time.Now().Add(s.settings.HoldDuration)
		fields := repository.TransitionFields{
			BuyerName:     &name,
			BuyerPhone:    &phone,
			ReservedUntil: &reservedUntil,
		}
		if err := s.tickets.ConditionalTransition(ctx, number, models.TicketAvailable, models.TicketReserved, fields); err != nil {
			return nil, err
		}
		resp.Status = models.TicketReserved
		resp.ReservedUntil = &reservedUntil
	} else {
		fields := repository.TransitionFields{
			BuyerName:  &name,
			BuyerPhone: &phone,
			ProofURL:   &proofURL,
		}
		if err := s.tickets.ConditionalTransition(ctx, number, models.TicketAvailable, models.TicketPaid, fields); err != nil {
			return nil, err
		}
		resp.Status = models.TicketPaid
	}

	s.invalidateList(ctx)
	return resp, nil
}

func (s *TicketService) Get(ctx context.Context, number string) (*models.Ticket, error) {
	if err := ValidateNumber(number); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, apperrors.ErrNotFound
	}

	return ticket, nil
}

// List returns all tickets ordered by number, served from the cache when
// warm. The cache is only ever a view of the list; transition decisions
// never read it.
func (s *TicketService) List(ctx context.Context) ([]models.Ticket, error) {
	if s.cache != nil {
		if raw, err := s.cache.GetTicketListRaw(ctx); err == nil {
			var tickets []models.Ticket
			if err := json.Unmarshal(raw, &tickets); err == nil {
				return tickets, nil
			}
		}
	}

	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetTicketList(ctx, tickets); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache ticket list", "error", err)
		}
	}

	return tickets, nil
}

// Stats aggregates ticket counts and the approved amount collected.
func (s *TicketService) Stats(ctx context.Context) (*models.TicketStats, error) {
	available, reserved, paid, total, err := s.tickets.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	collected, err := s.payments.SumApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	return &models.TicketStats{
		Available:       available,
		Reserved:        reserved,
		Paid:            paid,
		Total:           total,
		AmountCollected: collected,
	}, nil
}

func (s *TicketService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTicketList(ctx); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate ticket list cache", "error", err)
	}
}
