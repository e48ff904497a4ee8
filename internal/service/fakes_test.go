package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "boletera/internal/errors"
	"boletera/internal/external"
	"boletera/internal/models"
	"boletera/internal/repository"
)

// fakeTicketStore is an in-memory TicketStore with the same atomicity
// semantics as the SQL repository: the compare-and-swap happens under a
// single lock.
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	s := &fakeTicketStore{tickets: make(map[string]*models.Ticket)}
	now := time.Now()
	for n := 0; n < 100; n++ {
		number := fmt.Sprintf("%02d", n)
		s.tickets[number] = &models.Ticket{
			Number:    number,
			Status:    models.TicketAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return s
}

func (s *fakeTicketStore) GetByNumber(_ context.Context, number string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[number]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTicketStore) ListAll(_ context.Context) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(*models.Ticket) bool { return true }), nil
}

func (s *fakeTicketStore) ListSoldOrReserved(_ context.Context) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(t *models.Ticket) bool {
		return t.Status == models.TicketReserved || t.Status == models.TicketPaid
	}), nil
}

func (s *fakeTicketStore) snapshot(keep func(*models.Ticket) bool) []models.Ticket {
	var out []models.Ticket
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *fakeTicketStore) ConditionalTransition(_ context.Context, number, expectedStatus, newStatus string, fields repository.TransitionFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[number]
	if !ok {
		return apperrors.ErrNotFound
	}
	if t.Status != expectedStatus {
		return apperrors.ErrNotAvailable
	}

	t.Status = newStatus
	t.BuyerName = fields.BuyerName
	t.BuyerPhone = fields.BuyerPhone
	t.ReservedUntil = fields.ReservedUntil
	t.PaymentRef = fields.PaymentRef
	t.ProofURL = fields.ProofURL
	t.UpdatedAt = time.Now()
	return nil
}

func (s *fakeTicketStore) ForceMarkPaid(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[number]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = models.TicketPaid
	t.ReservedUntil = nil
	t.UpdatedAt = time.Now()
	return nil
}

func (s *fakeTicketStore) ForceRelease(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[number]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = models.TicketAvailable
	t.BuyerName = nil
	t.BuyerPhone = nil
	t.ReservedUntil = nil
	t.PaymentRef = nil
	t.ProofURL = nil
	t.UpdatedAt = time.Now()
	return nil
}

func (s *fakeTicketStore) ForceMarkReserved(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[number]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = models.TicketReserved
	t.UpdatedAt = time.Now()
	return nil
}

func (s *fakeTicketStore) BulkExpireReservations(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, t := range s.tickets {
		if t.Status == models.TicketReserved && t.ReservedUntil != nil && t.ReservedUntil.Before(now) {
			t.Status = models.TicketAvailable
			t.BuyerName = nil
			t.BuyerPhone = nil
			t.ReservedUntil = nil
			t.PaymentRef = nil
			t.ProofURL = nil
			t.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (s *fakeTicketStore) Counts(_ context.Context) (available, reserved, paid, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		switch t.Status {
		case models.TicketAvailable:
			available++
		case models.TicketReserved:
			reserved++
		case models.TicketPaid:
			paid++
		}
		total++
	}
	return
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*models.Payment)}
}

func (s *fakePaymentStore) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.TransactionID]; exists {
		return fmt.Errorf("duplicate transaction id %s", payment.TransactionID)
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	copied := *payment
	s.payments[payment.TransactionID] = &copied
	return nil
}

func (s *fakePaymentStore) GetByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[transactionID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *fakePaymentStore) RecordOutcome(_ context.Context, transactionID, status string, payload json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[transactionID]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.GatewayPayload = payload
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakePaymentStore) StorePayload(_ context.Context, transactionID string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[transactionID]; ok && p.Status == models.PaymentPending {
		p.GatewayPayload = payload
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (s *fakePaymentStore) SumApproved(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.payments {
		if p.Status == models.PaymentApproved {
			total += p.Amount
		}
	}
	return total, nil
}

type fakeDrawingStore struct {
	mu      sync.Mutex
	drawing *models.Drawing
}

func (s *fakeDrawingStore) Get(_ context.Context) (*models.Drawing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing == nil {
		s.drawing = &models.Drawing{ID: 1}
	}
	copied := *s.drawing
	return &copied, nil
}

func (s *fakeDrawingStore) Finalize(_ context.Context, winningNumber string, fullDrawnNumber *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing == nil {
		s.drawing = &models.Drawing{ID: 1}
	}
	if s.drawing.Finalized {
		return apperrors.ErrAlreadyFinalized
	}
	s.drawing.Finalized = true
	s.drawing.WinningNumber = &winningNumber
	s.drawing.FullDrawnNumber = fullDrawnNumber
	s.drawing.FinalizedAt = &at
	return nil
}

func (s *fakeDrawingStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = nil
	return nil
}

// fakeGateway returns canned results so the reconciliation flow can be
// driven without HTTP.
type fakeGateway struct {
	intentResult *external.IntentResult
	intentErr    error
	notif        *external.Notification
	verifyErr    error
	fetchNotif   *external.Notification
	fetchErr     error

	createCalls int
}

func (g *fakeGateway) CreateIntent(context.Context, external.Intent) (*external.IntentResult, error) {
	g.createCalls++
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	if g.intentResult != nil {
		return g.intentResult, nil
	}
	return &external.IntentResult{PreferenceID: "pref-1", PaymentURL: "https://gateway.test/pay/pref-1"}, nil
}

func (g *fakeGateway) VerifyNotification([]byte) (*external.Notification, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.notif, nil
}

func (g *fakeGateway) FetchPayment(context.Context, string) (*external.Notification, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.fetchNotif, nil
}

type fakeCache struct {
	mu            sync.Mutex
	raw           []byte
	invalidations int
}

func (c *fakeCache) GetTicketListRaw(context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return nil, fmt.Errorf("not cached")
	}
	return c.raw, nil
}

func (c *fakeCache) SetTicketList(_ context.Context, list interface{}) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = data
	return nil
}

func (c *fakeCache) InvalidateTicketList(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = nil
	c.invalidations++
	return nil
}

func testSettings() Settings {
	return Settings{
		TicketPrice:  10000,
		HoldDuration: 10 * time.Minute,
		AdminSecret:  "topsecret",
	}
}
