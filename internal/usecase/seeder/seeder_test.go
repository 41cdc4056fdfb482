package seeder

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// MockInstrumentStore is a mock implementation of InstrumentStore for testing
type MockInstrumentStore struct {
	mock.Mock
}

func (m *MockInstrumentStore) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.UnitOfWork), args.Error(1)
}

func (m *MockInstrumentStore) GetBySymbol(ctx context.Context, uow domain.UnitOfWork, symbol string) (*domain.Instrument, error) {
	args := m.Called(ctx, uow, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Instrument), args.Error(1)
}

func (m *MockInstrumentStore) Insert(ctx context.Context, uow domain.UnitOfWork, instrument *domain.Instrument) error {
	args := m.Called(ctx, uow, instrument)
	return args.Error(0)
}

func (m *MockInstrumentStore) Update(ctx context.Context, uow domain.UnitOfWork, instrument *domain.Instrument) error {
	args := m.Called(ctx, uow, instrument)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork for testing
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSeed_CreatesBaselineInstrument(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	store := new(MockInstrumentStore)
	uow := new(MockUnitOfWork)

	store.On("Begin", ctx).Return(uow, nil)
	store.On("GetBySymbol", ctx, uow, "BTC").Return(nil, nil)
	store.On("Insert", ctx, uow, mock.AnythingOfType("*domain.Instrument")).Return(nil)
	uow.On("Commit").Return(nil)

	require.NoError(t, NewSeeder(store, fixedClock{now: now}, silentLogger()).Seed(ctx))

	seeded := store.Calls[2].Arguments.Get(2).(*domain.Instrument)
	assert.Equal(t, "BTC", seeded.Symbol())
	assert.Equal(t, "Bitcoin", seeded.Name())
	assert.True(t, seeded.CurrentRate().Amount().Equal(decimal.NewFromInt(59000)))
	assert.Equal(t, now.Add(-23*time.Hour), seeded.LastUpdated())

	// The 25h-old creation sample falls outside the retention window and
	// is evicted when the 23h-old update is accepted.
	require.Len(t, seeded.History(), 1)
	assert.Equal(t, now.Add(-23*time.Hour), seeded.History()[0].Timestamp())

	store.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestSeed_SkipsWhenBaselineExists(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	store := new(MockInstrumentStore)
	uow := new(MockUnitOfWork)

	existingRate, err := domain.NewMoney(decimal.NewFromInt(60000), "USD")
	require.NoError(t, err)
	existing := domain.RehydrateInstrument(uuid.New(), "BTC", "Bitcoin", existingRate, now, nil)

	store.On("Begin", ctx).Return(uow, nil)
	store.On("GetBySymbol", ctx, uow, "BTC").Return(existing, nil)
	uow.On("Rollback").Return(nil)

	require.NoError(t, NewSeeder(store, fixedClock{now: now}, silentLogger()).Seed(ctx))

	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertExpectations(t)
}
