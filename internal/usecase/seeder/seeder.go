package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	seedSymbol = "BTC"
	seedName   = "Bitcoin"
)

// Seeder ensures a baseline instrument exists so variation detection has
// historical data to compare against from the first cycle onward.
type Seeder struct {
	store  domain.InstrumentStore
	clock  domain.Clock
	logger *logrus.Logger
}

// NewSeeder creates a new Seeder instance
func NewSeeder(store domain.InstrumentStore, clock domain.Clock, logger *logrus.Logger) *Seeder {
	return &Seeder{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Seed creates the BTC baseline if it does not exist yet: an instrument
// created 25 hours ago with one accepted update 23 hours ago, matching
// the lookback window so the first real update already has a comparison
// basis. Idempotent: an existing BTC instrument is left untouched.
func (s *Seeder) Seed(ctx context.Context) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}

	existing, err := s.store.GetBySymbol(ctx, uow, seedSymbol)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("check for existing %s: %w", seedSymbol, err)
	}
	if existing != nil {
		s.logger.WithField("symbol", seedSymbol).Info("baseline instrument already exists, skipping seeding")
		return uow.Rollback()
	}

	s.logger.WithField("symbol", seedSymbol).Info("seeding baseline instrument")

	now := s.clock.Now()

	initialRate, err := domain.NewMoney(decimal.NewFromFloat(58400.82), "USD")
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("build initial rate: %w", err)
	}
	updatedRate, err := domain.NewMoney(decimal.NewFromInt(59000), "USD")
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("build updated rate: %w", err)
	}

	instrument, err := domain.NewInstrument(seedSymbol, seedName, initialRate, now.Add(-25*time.Hour))
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("create baseline instrument: %w", err)
	}
	if err := instrument.UpdateRate(updatedRate, now.Add(-23*time.Hour), now); err != nil {
		uow.Rollback()
		return fmt.Errorf("apply baseline update: %w", err)
	}

	if err := s.store.Insert(ctx, uow, instrument); err != nil {
		uow.Rollback()
		return fmt.Errorf("insert baseline instrument: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit seeding: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol": seedSymbol,
		"rate":   instrument.CurrentRate().String(),
	}).Info("baseline instrument seeded")
	return nil
}
