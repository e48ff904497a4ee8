package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "boletera/internal/errors"
	"boletera/internal/external"
	"boletera/internal/logger"
	"boletera/internal/models"
	"boletera/internal/repository"
)

// PaymentService owns the payment reconciliation contract: it creates
// gateway intents for reserved tickets and applies gateway notifications
// to payments and tickets exactly once.
type PaymentService struct {
	tickets  TicketStore
	payments PaymentStore
	gateway  external.Gateway
	cache    ListCache
	settings Settings
}

func NewPaymentService(tickets TicketStore, payments PaymentStore, gateway external.Gateway, cache ListCache, settings Settings) *PaymentService {
	return &PaymentService{
		tickets:  tickets,
		payments: payments,
		gateway:  gateway,
		cache:    cache,
		settings: settings,
	}
}

// CreateIntent opens a gateway checkout session for a reserved ticket.
// The gateway is called before anything is persisted, so an upstream
// failure leaves no local state to roll back.
func (s *PaymentService) CreateIntent(ctx context.Context, req *models.PaymentIntentRequest) (*models.PaymentIntentResponse, error) {
	if err := ValidateNumber(req.TicketNumber); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, apperrors.ErrMissingBuyerFields
	}

	ticket, err := s.tickets.GetByNumber(ctx, req.TicketNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, apperrors.ErrNotFound
	}
	if ticket.Status != models.TicketReserved {
		return nil, apperrors.ErrNotAvailable
	}

	transactionID := fmt.Sprintf("TICKET-%s-%d", req.TicketNumber, time.Now().UnixMilli())

	intent, err := s.gateway.CreateIntent(ctx, external.Intent{
		Reference:   transactionID,
		Amount:      s.settings.TicketPrice,
		Currency:    "COP",
		Description: fmt.Sprintf("Boleta %s", req.TicketNumber),
	})
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		TransactionID: transactionID,
		TicketNumber:  req.TicketNumber,
		Amount:        s.settings.TicketPrice,
		Status:        models.PaymentPending,
		BuyerName:     name,
		BuyerPhone:    phone,
	}
	if intent.PreferenceID != "" {
		payment.PreferenceID = &intent.PreferenceID
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	// Link the pending payment to the reservation. The conditional write
	// fails if the hold expired in the meantime.
	reservedUntil := ticket.ReservedUntil
	fields := repository.TransitionFields{
		BuyerName:     &name,
		BuyerPhone:    &phone,
		ReservedUntil: reservedUntil,
		PaymentRef:    &transactionID,
	}
	if err := s.tickets.ConditionalTransition(ctx, req.TicketNumber, models.TicketReserved, models.TicketReserved, fields); err != nil {
		return nil, err
	}

	s.invalidateList(ctx)

	return &models.PaymentIntentResponse{
		TransactionID: transactionID,
		TicketNumber:  req.TicketNumber,
		Amount:        s.settings.TicketPrice,
		PaymentURL:    intent.PaymentURL,
		PreferenceID:  intent.PreferenceID,
	}, nil
}

// GetByTransactionID looks up one payment attempt.
func (s *PaymentService) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment, err := s.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.ErrNotFound
	}
	return payment, nil
}

// HandleNotification applies one gateway notification idempotently.
// ErrInvalidSignature is the only error returned to the caller, because
// the gateway must retry delivery on it; every other problem is logged
// and acknowledged so the provider does not storm us with redeliveries.
func (s *PaymentService) HandleNotification(ctx context.Context, rawBody []byte) error {
	log := logger.WithContext(ctx)

	notif, err := s.gateway.VerifyNotification(rawBody)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidSignature) {
			return err
		}
		log.Error("Failed to parse gateway notification", "error", err)
		return nil
	}

	// Async id-only notifications carry no reference; fetch the full
	// payment object from the gateway before reconciling.
	if notif.Reference == "" && notif.ExternalID != "" {
		fetched, err := s.gateway.FetchPayment(ctx, notif.ExternalID)
		if err != nil {
			log.Error("Failed to fetch payment from gateway", "error", err, "external_id", notif.ExternalID)
			return nil
		}
		notif = fetched
	}

	payment, err := s.payments.GetByTransactionID(ctx, notif.Reference)
	if err != nil {
		log.Error("Failed to look up payment", "error", err, "transaction_id", notif.Reference)
		return nil
	}
	if payment == nil {
		// Do not fabricate state for unknown references.
		log.Warn("Gateway notification for unknown payment", "transaction_id", notif.Reference)
		return nil
	}

	switch strings.ToUpper(notif.Status) {
	case "APPROVED":
		s.applyApproval(ctx, payment, notif)
	case "DECLINED", "ERROR", "VOIDED", "CANCELLED":
		s.applyDecline(ctx, payment, notif)
	case "PENDING", "IN_PROCESS":
		if err := s.payments.StorePayload(ctx, payment.TransactionID, notif.RawPayload); err != nil {
			log.Error("Failed to store in-process payload", "error", err, "transaction_id", payment.TransactionID)
		}
	default:
		log.Warn("Gateway notification with unknown status",
			"status", notif.Status, "transaction_id", payment.TransactionID)
	}

	return nil
}

func (s *PaymentService) applyApproval(ctx context.Context, payment *models.Payment, notif *external.Notification) {
	log := logger.WithContext(ctx)

	applied, err := s.payments.RecordOutcome(ctx, payment.TransactionID, models.PaymentApproved, notif.RawPayload)
	if err != nil {
		log.Error("Failed to record approved payment", "error", err, "transaction_id", payment.TransactionID)
		return
	}
	if !applied {
		log.Info("Replayed approval for settled payment", "transaction_id", payment.TransactionID)
	}

	fields := repository.TransitionFields{
		BuyerName:  &payment.BuyerName,
		BuyerPhone: &payment.BuyerPhone,
		PaymentRef: &payment.TransactionID,
	}
	err = s.tickets.ConditionalTransition(ctx, payment.TicketNumber, models.TicketReserved, models.TicketPaid, fields)
	if errors.Is(err, apperrors.ErrNotAvailable) {
		ticket, getErr := s.tickets.GetByNumber(ctx, payment.TicketNumber)
		if getErr != nil || ticket == nil {
			log.Error("Failed to re-check ticket after approval", "error", getErr, "ticket_number", payment.TicketNumber)
			return
		}
		switch ticket.Status {
		case models.TicketPaid:
			// Replay of an already applied approval.
			return
		case models.TicketAvailable:
			// Hold expired before the notification arrived; the gateway
			// outcome is the truth, so claim the ticket back for the buyer.
			err = s.tickets.ConditionalTransition(ctx, payment.TicketNumber, models.TicketAvailable, models.TicketPaid, fields)
		}
	}
	if err != nil {
		log.Error("Failed to mark ticket paid", "error", err,
			"ticket_number", payment.TicketNumber, "transaction_id", payment.TransactionID)
		return
	}

	s.invalidateList(ctx)
	log.Info("Payment approved", "ticket_number", payment.TicketNumber, "transaction_id", payment.TransactionID)
}

func (s *PaymentService) applyDecline(ctx context.Context, payment *models.Payment, notif *external.Notification) {
	log := logger.WithContext(ctx)

	applied, err := s.payments.RecordOutcome(ctx, payment.TransactionID, models.PaymentDeclined, notif.RawPayload)
	if err != nil {
		log.Error("Failed to record declined payment", "error", err, "transaction_id", payment.TransactionID)
		return
	}
	if !applied {
		// Terminal already; a replayed decline must not release a ticket
		// that may since have been resold.
		return
	}

	ticket, err := s.tickets.GetByNumber(ctx, payment.TicketNumber)
	if err != nil || ticket == nil {
		log.Error("Failed to load ticket for decline", "error", err, "ticket_number", payment.TicketNumber)
		return
	}

	// Release only the reservation this payment belongs to.
	if ticket.Status != models.TicketReserved || ticket.PaymentRef == nil || *ticket.PaymentRef != payment.TransactionID {
		return
	}

	err = s.tickets.ConditionalTransition(ctx, payment.TicketNumber, models.TicketReserved, models.TicketAvailable, repository.TransitionFields{})
	if err != nil && !errors.Is(err, apperrors.ErrNotAvailable) {
		log.Error("Failed to release ticket after decline", "error", err, "ticket_number", payment.TicketNumber)
		return
	}

	s.invalidateList(ctx)
	log.Info("Payment declined, ticket released",
		"ticket_number", payment.TicketNumber, "transaction_id", payment.TransactionID)
}

func (s *PaymentService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTicketList(ctx); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate ticket list cache", "error", err)
	}
}
