package jobs

import (
	"context"
	"log/slog"
	"time"
)

// TicketExpirer is the one store operation the sweep needs: a set-based
// conditional release of expired reservations.
type TicketExpirer interface {
	BulkExpireReservations(ctx context.Context, now time.Time) (int64, error)
}

// CacheInvalidator drops the cached public ticket list after the sweep
// mutated tickets. Optional.
type CacheInvalidator interface {
	InvalidateTicketList(ctx context.Context) error
}

// ReservationSweeper periodically releases reservations whose hold has
// passed. The store-side status guard makes it safe to run concurrently
// with buyer transitions; a ticket that left RESERVED before the sweep
// wrote is simply not matched.
type ReservationSweeper struct {
	tickets  TicketExpirer
	cache    CacheInvalidator
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewReservationSweeper(tickets TicketExpirer, cache CacheInvalidator, interval time.Duration) *ReservationSweeper {
	return &ReservationSweeper{
		tickets:  tickets,
		cache:    cache,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. The first sweep runs
// immediately.
func (s *ReservationSweeper) Start(ctx context.Context) {
	slog.Info("Starting reservation sweep", "interval", s.interval.String())

	s.ticker = time.NewTicker(s.interval)

	go s.sweep(ctx)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.sweep(ctx)
			case <-s.done:
				slog.Info("Reservation sweep stopped")
				return
			}
		}
	}()
}

// Stop shuts the loop down.
func (s *ReservationSweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

// sweep releases everything past its hold. Failures are logged and the
// loop continues on the next tick.
func (s *ReservationSweeper) sweep(ctx context.Context) {
	released, err := s.tickets.BulkExpireReservations(ctx, time.Now())
	if err != nil {
		slog.Error("Reservation sweep failed", "error", err)
		return
	}

	if released == 0 {
		return
	}

	slog.Info("Released expired reservations", "count", released)

	if s.cache != nil {
		if err := s.cache.InvalidateTicketList(ctx); err != nil {
			slog.Warn("Failed to invalidate ticket list cache after sweep", "error", err)
		}
	}
}
