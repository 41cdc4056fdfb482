package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMoney(t *testing.T, amount int64, currency string) Money {
	t.Helper()
	m, err := NewMoney(decimal.NewFromInt(amount), currency)
	require.NoError(t, err)
	return m
}

func TestNewInstrument(t *testing.T) {
	observedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rate := mustMoney(t, 60000, "USD")

	instrument, err := NewInstrument("btc", "Bitcoin", rate, observedAt)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, instrument.ID())
	assert.Equal(t, "BTC", instrument.Symbol())
	assert.Equal(t, "Bitcoin", instrument.Name())
	assert.True(t, instrument.CurrentRate().Equal(rate))
	assert.Equal(t, observedAt, instrument.LastUpdated())

	history := instrument.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Rate().Equal(rate))
	assert.Equal(t, observedAt, history[0].Timestamp())
}

func TestNewInstrument_InvalidArguments(t *testing.T) {
	observedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rate := mustMoney(t, 60000, "USD")

	tests := []struct {
		name       string
		symbol     string
		instName   string
		observedAt time.Time
		wantErr    error
	}{
		{
			name:       "empty symbol should fail",
			symbol:     "",
			instName:   "Bitcoin",
			observedAt: observedAt,
			wantErr:    ErrEmptySymbol,
		},
		{
			name:       "whitespace symbol should fail",
			symbol:     "  ",
			instName:   "Bitcoin",
			observedAt: observedAt,
			wantErr:    ErrEmptySymbol,
		},
		{
			name:       "empty name should fail",
			symbol:     "BTC",
			instName:   "",
			observedAt: observedAt,
			wantErr:    ErrEmptyName,
		},
		{
			name:     "zero observation timestamp should fail",
			symbol:   "BTC",
			instName: "Bitcoin",
			wantErr:  ErrZeroObservedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstrument(tt.symbol, tt.instName, rate, tt.observedAt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInstrument_UpdateRate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	instrument, err := NewInstrument("ETH", "Ethereum", mustMoney(t, 3000, "USD"), now.Add(-10*time.Minute))
	require.NoError(t, err)

	newRate := mustMoney(t, 3050, "USD")
	require.NoError(t, instrument.UpdateRate(newRate, now, now))

	assert.True(t, instrument.CurrentRate().Equal(newRate))
	assert.Equal(t, now, instrument.LastUpdated())
	require.Len(t, instrument.History(), 2)
	assert.Equal(t, now, instrument.History()[1].Timestamp())
}

func TestInstrument_UpdateRate_Monotonic(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	initialRate := mustMoney(t, 100, "USD")
	instrument, err := NewInstrument("LTC", "Litecoin", initialRate, now)
	require.NoError(t, err)

	newRate := mustMoney(t, 101, "USD")

	// Same timestamp is rejected
	err = instrument.UpdateRate(newRate, now, now)
	assert.ErrorIs(t, err, ErrStaleObservation)

	// Older timestamp is rejected
	err = instrument.UpdateRate(newRate, now.Add(-5*time.Minute), now)
	assert.ErrorIs(t, err, ErrStaleObservation)

	// State is unchanged after rejected updates
	assert.True(t, instrument.CurrentRate().Equal(initialRate))
	assert.Equal(t, now, instrument.LastUpdated())
	assert.Len(t, instrument.History(), 1)

	// A sequence of strictly increasing timestamps is accepted
	for i := 1; i <= 3; i++ {
		observedAt := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, instrument.UpdateRate(newRate, observedAt, observedAt))
		assert.Equal(t, observedAt, instrument.LastUpdated())
	}
}

func TestInstrument_UpdateRate_CurrencyIsFixed(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	initialRate := mustMoney(t, 100, "USD")
	instrument, err := NewInstrument("XRP", "Ripple", initialRate, now.Add(-time.Minute))
	require.NoError(t, err)

	err = instrument.UpdateRate(mustMoney(t, 90, "EUR"), now, now)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.True(t, instrument.CurrentRate().Equal(initialRate))
	assert.Len(t, instrument.History(), 1)
}

func TestInstrument_UpdateRate_EvictsStaleHistory(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	retention := DefaultLookbackWindow + DefaultEvictionMargin

	instrument, err := NewInstrument("BTC", "Bitcoin", mustMoney(t, 100, "USD"), now.Add(-26*time.Hour))
	require.NoError(t, err)
	require.NoError(t, instrument.UpdateRate(mustMoney(t, 101, "USD"), now.Add(-23*time.Hour), now))
	require.NoError(t, instrument.UpdateRate(mustMoney(t, 102, "USD"), now, now))

	history := instrument.History()
	require.Len(t, history, 2)
	for _, hr := range history {
		assert.False(t, hr.Timestamp().Before(now.Add(-retention)),
			"retained sample older than the retention window")
	}
}

func TestInstrument_OldestRateWithin(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	instrument, err := NewInstrument("BTC", "Bitcoin", mustMoney(t, 100, "USD"), now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.NoError(t, instrument.UpdateRate(mustMoney(t, 105, "USD"), now.Add(-12*time.Hour), now))
	require.NoError(t, instrument.UpdateRate(mustMoney(t, 110, "USD"), now, now))

	// Full 24h window: the 23h-old sample is the oldest qualifying one
	oldest, found := instrument.OldestRateWithin(24*time.Hour, now)
	require.True(t, found)
	assert.Equal(t, now.Add(-23*time.Hour), oldest.Timestamp())
	assert.True(t, oldest.Rate().Equal(mustMoney(t, 100, "USD")))

	// A narrower window excludes the oldest samples
	oldest, found = instrument.OldestRateWithin(13*time.Hour, now)
	require.True(t, found)
	assert.Equal(t, now.Add(-12*time.Hour), oldest.Timestamp())

	// A window covering nothing yields no result
	_, found = instrument.OldestRateWithin(time.Minute, now.Add(2*time.Hour))
	assert.False(t, found)
}

func TestRehydrateInstrument_DoesNotEvict(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	staleRate := mustMoney(t, 50, "USD")
	currentRate := mustMoney(t, 100, "USD")

	// History far older than the retention window survives rehydration
	history := []HistoricalRate{
		RehydrateHistoricalRate(uuid.New(), now.Add(-72*time.Hour), staleRate),
		RehydrateHistoricalRate(uuid.New(), now.Add(-time.Hour), currentRate),
	}

	instrument := RehydrateInstrument(id, "BTC", "Bitcoin", currentRate, now.Add(-time.Hour), history)

	assert.Equal(t, id, instrument.ID())
	assert.Len(t, instrument.History(), 2)

	// Eviction only runs when a new sample is accepted
	require.NoError(t, instrument.UpdateRate(mustMoney(t, 102, "USD"), now, now))
	assert.Len(t, instrument.History(), 2)
}
