package domain

import "context"

// UnitOfWork is one atomic transaction scoped to a single symbol's
// load-mutate-persist sequence. It is finalized exactly once, by either
// Commit or Rollback.
type UnitOfWork interface {
	Commit() error
	Rollback() error
}

// InstrumentStore defines persistence for the Instrument aggregate.
// GetBySymbol, Insert and Update all participate in the caller-scoped
// unit of work, which is the serialization point for concurrent writers:
// no other writer may observe an intermediate state of one symbol's
// read-modify-write.
type InstrumentStore interface {
	// Begin opens a new unit of work.
	Begin(ctx context.Context) (UnitOfWork, error)

	// GetBySymbol retrieves an instrument by its normalized symbol.
	// Returns (nil, nil) when no instrument with that symbol exists.
	GetBySymbol(ctx context.Context, uow UnitOfWork, symbol string) (*Instrument, error)

	// Insert persists a newly created instrument.
	Insert(ctx context.Context, uow UnitOfWork, instrument *Instrument) error

	// Update persists the mutated state of an existing instrument.
	Update(ctx context.Context, uow UnitOfWork, instrument *Instrument) error
}
