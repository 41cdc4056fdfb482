package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLookbackWindow is the window used to select the comparison
	// baseline for variation detection.
	DefaultLookbackWindow = 24 * time.Hour

	// DefaultEvictionMargin pads history retention beyond the lookback
	// window. Eviction runs at update time while the lookback query runs
	// later, at check time; the margin absorbs the drift between the two
	// so a sample is not evicted moments before it would have been the
	// query's answer.
	DefaultEvictionMargin = 5 * time.Minute
)

var (
	// ErrEmptySymbol is returned when an instrument symbol is empty.
	ErrEmptySymbol = errors.New("instrument symbol cannot be empty")

	// ErrEmptyName is returned when an instrument name is empty.
	ErrEmptyName = errors.New("instrument name cannot be empty")

	// ErrZeroObservedAt is returned when an observation timestamp is unset.
	ErrZeroObservedAt = errors.New("observation timestamp cannot be zero")

	// ErrStaleObservation is returned when an update does not strictly
	// advance the instrument's last update time.
	ErrStaleObservation = errors.New("observation is not newer than last update")
)

// HistoricalRate is one observed price sample in an instrument's timeline.
// It is created by the owning Instrument when a rate is accepted, or by
// RehydrateHistoricalRate when the storage layer materializes an aggregate.
type HistoricalRate struct {
	id        uuid.UUID
	timestamp time.Time
	rate      Money
}

// RehydrateHistoricalRate rebuilds a stored sample without re-validation.
// Reserved for storage materialization; business code never calls it.
func RehydrateHistoricalRate(id uuid.UUID, timestamp time.Time, rate Money) HistoricalRate {
	return HistoricalRate{id: id, timestamp: timestamp, rate: rate}
}

// ID returns the sample's surrogate identity.
func (h HistoricalRate) ID() uuid.UUID { return h.id }

// Timestamp returns the observation instant.
func (h HistoricalRate) Timestamp() time.Time { return h.timestamp }

// Rate returns the observed rate.
func (h HistoricalRate) Rate() Money { return h.rate }

// Instrument is the aggregate root for a tracked tradable entity.
// It owns the current rate, the last-updated timestamp and a bounded
// history of samples, and enforces monotonic-time updates and currency
// consistency across its lifetime.
type Instrument struct {
	id          uuid.UUID
	symbol      string
	name        string
	currentRate Money
	lastUpdated time.Time
	history     []HistoricalRate
	retention   time.Duration
}

// InstrumentOption tunes aggregate construction.
type InstrumentOption func(*Instrument)

// WithRetentionWindow overrides the history retention window
// (lookback window plus eviction margin).
func WithRetentionWindow(lookback, margin time.Duration) InstrumentOption {
	return func(i *Instrument) {
		i.retention = lookback + margin
	}
}

// NewInstrument creates an instrument from its first observed quote.
// The symbol is normalized to uppercase and the history is seeded with
// exactly one sample equal to (observedAt, initialRate).
func NewInstrument(symbol, name string, initialRate Money, observedAt time.Time, opts ...InstrumentOption) (*Instrument, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, ErrEmptySymbol
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if observedAt.IsZero() {
		return nil, ErrZeroObservedAt
	}

	inst := &Instrument{
		id:          uuid.New(),
		symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		name:        name,
		currentRate: initialRate,
		lastUpdated: observedAt,
		retention:   DefaultLookbackWindow + DefaultEvictionMargin,
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.history = append(inst.history, HistoricalRate{
		id:        uuid.New(),
		timestamp: observedAt,
		rate:      initialRate,
	})
	return inst, nil
}

// RehydrateInstrument rebuilds a stored aggregate without re-running
// validation or eviction. History must be ordered by ascending timestamp.
// Reserved for storage materialization; business code never calls it.
func RehydrateInstrument(id uuid.UUID, symbol, name string, currentRate Money, lastUpdated time.Time, history []HistoricalRate, opts ...InstrumentOption) *Instrument {
	inst := &Instrument{
		id:          id,
		symbol:      symbol,
		name:        name,
		currentRate: currentRate,
		lastUpdated: lastUpdated,
		history:     history,
		retention:   DefaultLookbackWindow + DefaultEvictionMargin,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ID returns the surrogate identity.
func (i *Instrument) ID() uuid.UUID { return i.id }

// Symbol returns the normalized business key.
func (i *Instrument) Symbol() string { return i.symbol }

// Name returns the display name.
func (i *Instrument) Name() string { return i.name }

// CurrentRate returns the most recently accepted rate.
func (i *Instrument) CurrentRate() Money { return i.currentRate }

// LastUpdated returns the timestamp of the most recently accepted update.
func (i *Instrument) LastUpdated() time.Time { return i.lastUpdated }

// History returns a copy of the retained samples in insertion order.
func (i *Instrument) History() []HistoricalRate {
	out := make([]HistoricalRate, len(i.history))
	copy(out, i.history)
	return out
}

// UpdateRate accepts a new observed sample.
// The rate currency is fixed at creation: a different currency yields
// ErrCurrencyMismatch. Updates must strictly advance time: an observedAt
// at or before the last update yields ErrStaleObservation. On success the
// sample is appended and history entries older than the retention window
// relative to now are evicted.
func (i *Instrument) UpdateRate(newRate Money, observedAt, now time.Time) error {
	if newRate.Currency() != i.currentRate.Currency() {
		return ErrCurrencyMismatch
	}
	if !observedAt.After(i.lastUpdated) {
		return ErrStaleObservation
	}

	i.currentRate = newRate
	i.lastUpdated = observedAt
	i.history = append(i.history, HistoricalRate{
		id:        uuid.New(),
		timestamp: observedAt,
		rate:      newRate,
	})
	i.evictOlderThan(now.Add(-i.retention))
	return nil
}

// evictOlderThan drops history entries with timestamps before the cutoff.
func (i *Instrument) evictOlderThan(cutoff time.Time) {
	kept := i.history[:0]
	for _, hr := range i.history {
		if !hr.timestamp.Before(cutoff) {
			kept = append(kept, hr)
		}
	}
	i.history = kept
}

// OldestRateWithin returns the retained sample with the smallest timestamp
// whose age relative to now does not exceed the window, and true if one
// exists. Equal timestamps resolve to the earliest-inserted sample. The
// query is read-only.
func (i *Instrument) OldestRateWithin(window time.Duration, now time.Time) (HistoricalRate, bool) {
	threshold := now.Add(-window)

	var oldest HistoricalRate
	found := false
	for _, hr := range i.history {
		if hr.timestamp.Before(threshold) {
			continue
		}
		if !found || hr.timestamp.Before(oldest.timestamp) {
			oldest = hr
			found = true
		}
	}
	return oldest, found
}
