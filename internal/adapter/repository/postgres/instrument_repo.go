package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
)

// unitOfWork wraps a database transaction as the per-symbol atomic unit
// of work finalized by the orchestrator.
type unitOfWork struct {
	tx *sql.Tx
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// instrumentRepository implements domain.InstrumentStore
type instrumentRepository struct {
	db   *DB
	opts []domain.InstrumentOption
}

// NewInstrumentRepository creates a new instrument repository. The given
// options are applied to every aggregate rehydrated from storage.
func NewInstrumentRepository(db *DB, opts ...domain.InstrumentOption) domain.InstrumentStore {
	return &instrumentRepository{db: db, opts: opts}
}

// Begin opens a new transaction-backed unit of work
func (r *instrumentRepository) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

// txFrom extracts the underlying transaction from a unit of work
func txFrom(uow domain.UnitOfWork) (*sql.Tx, error) {
	u, ok := uow.(*unitOfWork)
	if !ok {
		return nil, errors.New("unit of work was not created by this store")
	}
	return u.tx, nil
}

// GetBySymbol retrieves an instrument with its retained history.
// Returns (nil, nil) when no instrument with that symbol exists.
// The row is locked for the lifetime of the unit of work so concurrent
// cycles cannot interleave on the same symbol's read-modify-write.
func (r *instrumentRepository) GetBySymbol(ctx context.Context, uow domain.UnitOfWork, symbol string) (*domain.Instrument, error) {
	tx, err := txFrom(uow)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, symbol, name, current_rate_amount, current_rate_currency, last_updated
		FROM instruments
		WHERE symbol = $1
		FOR UPDATE
	`

	var (
		id          uuid.UUID
		sym         string
		name        string
		amountStr   string
		currency    string
		lastUpdated time.Time
	)

	err = tx.QueryRowContext(ctx, query, symbol).Scan(&id, &sym, &name, &amountStr, &currency, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument by symbol: %w", err)
	}

	currentRate, err := rehydrateMoney(amountStr, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current_rate_amount: %w", err)
	}

	history, err := r.loadHistory(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateInstrument(id, sym, name, currentRate, lastUpdated, history, r.opts...), nil
}

// loadHistory fetches the retained samples for an instrument, ordered by
// ascending timestamp so insertion order is preserved on rehydration.
func (r *instrumentRepository) loadHistory(ctx context.Context, tx *sql.Tx, instrumentID uuid.UUID) ([]domain.HistoricalRate, error) {
	query := `
		SELECT id, observed_at, rate_amount, rate_currency
		FROM historical_rates
		WHERE instrument_id = $1
		ORDER BY observed_at ASC
	`

	rows, err := tx.QueryContext(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical rates: %w", err)
	}
	defer rows.Close()

	var history []domain.HistoricalRate
	for rows.Next() {
		var (
			id         uuid.UUID
			observedAt time.Time
			amountStr  string
			currency   string
		)
		if err := rows.Scan(&id, &observedAt, &amountStr, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan historical rate: %w", err)
		}
		rate, err := rehydrateMoney(amountStr, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate_amount: %w", err)
		}
		history = append(history, domain.RehydrateHistoricalRate(id, observedAt, rate))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate historical rates: %w", err)
	}

	return history, nil
}

// Insert persists a newly created instrument with its seeded history
func (r *instrumentRepository) Insert(ctx context.Context, uow domain.UnitOfWork, instrument *domain.Instrument) error {
	tx, err := txFrom(uow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO instruments (id, symbol, name, current_rate_amount, current_rate_currency, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.ExecContext(ctx, query,
		instrument.ID(),
		instrument.Symbol(),
		instrument.Name(),
		instrument.CurrentRate().Amount().String(),
		instrument.CurrentRate().Currency(),
		instrument.LastUpdated(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert instrument: %w", err)
	}

	return r.insertHistory(ctx, tx, instrument)
}

// Update persists the mutated state of an existing instrument. The
// retained history is rewritten wholesale: the aggregate already evicted
// stale samples, so the stored rows are reconciled to match it exactly.
func (r *instrumentRepository) Update(ctx context.Context, uow domain.UnitOfWork, instrument *domain.Instrument) error {
	tx, err := txFrom(uow)
	if err != nil {
		return err
	}

	query := `
		UPDATE instruments
		SET name = $2, current_rate_amount = $3, current_rate_currency = $4, last_updated = $5
		WHERE id = $1
	`

	res, err := tx.ExecContext(ctx, query,
		instrument.ID(),
		instrument.Name(),
		instrument.CurrentRate().Amount().String(),
		instrument.CurrentRate().Currency(),
		instrument.LastUpdated(),
	)
	if err != nil {
		return fmt.Errorf("failed to update instrument: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("instrument %s not found for update", instrument.Symbol())
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM historical_rates WHERE instrument_id = $1`, instrument.ID()); err != nil {
		return fmt.Errorf("failed to clear historical rates: %w", err)
	}

	return r.insertHistory(ctx, tx, instrument)
}

// insertHistory writes the aggregate's retained samples
func (r *instrumentRepository) insertHistory(ctx context.Context, tx *sql.Tx, instrument *domain.Instrument) error {
	query := `
		INSERT INTO historical_rates (id, instrument_id, observed_at, rate_amount, rate_currency)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, hr := range instrument.History() {
		_, err := tx.ExecContext(ctx, query,
			hr.ID(),
			instrument.ID(),
			hr.Timestamp(),
			hr.Rate().Amount().String(),
			hr.Rate().Currency(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert historical rate: %w", err)
		}
	}
	return nil
}

// rehydrateMoney rebuilds a Money value from its stored columns
func rehydrateMoney(amountStr, currency string) (domain.Money, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.NewMoney(amount, currency)
}
