package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createTicketsTable,
		createPaymentsTable,
		createDrawingTable,
		createTicketsStatusIndex,
		createTicketsReservedUntilIndex,
		createPaymentsTicketIndex,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// SeedTickets bulk-inserts the fixed pool of 100 tickets numbered
// "00".."99", all AVAILABLE. Safe to run on every startup.
func (db *DB) SeedTickets() error {
	res, err := db.Exec(seedTickets)
	if err != nil {
		return fmt.Errorf("failed to seed tickets: %w", err)
	}

	if inserted, err := res.RowsAffected(); err == nil && inserted > 0 {
		slog.Info("Seeded ticket pool", "inserted", inserted)
	}
	return nil
}

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    number VARCHAR(2) PRIMARY KEY CHECK (number ~ '^[0-9]{2}$'),
    status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
    buyer_name VARCHAR(255),
    buyer_phone VARCHAR(50),
    reserved_until TIMESTAMPTZ,
    payment_ref VARCHAR(255),
    proof_url VARCHAR(500),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('AVAILABLE', 'RESERVED', 'PAID'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    transaction_id VARCHAR(255) PRIMARY KEY,
    ticket_number VARCHAR(2) NOT NULL REFERENCES tickets(number),
    amount BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    buyer_name VARCHAR(255) NOT NULL,
    buyer_phone VARCHAR(50) NOT NULL,
    gateway_payload JSONB,
    preference_id VARCHAR(255),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('PENDING', 'APPROVED', 'DECLINED'))
);`

// Single row enforced by the constant primary key.
const createDrawingTable = `
CREATE TABLE IF NOT EXISTS drawing (
    id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    finalized BOOLEAN NOT NULL DEFAULT FALSE,
    winning_number VARCHAR(2) CHECK (winning_number ~ '^[0-9]{2}$'),
    full_drawn_number VARCHAR(10),
    finalized_at TIMESTAMPTZ
);`

const createTicketsStatusIndex = `
CREATE INDEX IF NOT EXISTS tickets_status_idx ON tickets (status);`

const createTicketsReservedUntilIndex = `
CREATE INDEX IF NOT EXISTS tickets_reserved_until_idx ON tickets (reserved_until)
WHERE status = 'RESERVED';`

const createPaymentsTicketIndex = `
CREATE INDEX IF NOT EXISTS payments_ticket_number_idx ON payments (ticket_number);`

const seedTickets = `
INSERT INTO tickets (number, status)
SELECT LPAD(n::text, 2, '0'), 'AVAILABLE'
FROM generate_series(0, 99) AS n
ON CONFLICT (number) DO NOTHING;`
