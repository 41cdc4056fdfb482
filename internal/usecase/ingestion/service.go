package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/simaogato/ratewatch/internal/usecase/variation"
	"github.com/sirupsen/logrus"
)

// Config holds the tunables of an ingestion cycle.
type Config struct {
	// Threshold is the significance threshold for variation detection,
	// expressed as a fraction (0.05 = 5%).
	Threshold decimal.Decimal

	// LookbackWindow and EvictionMargin bound the history retained on
	// each instrument (lookback + margin).
	LookbackWindow time.Duration
	EvictionMargin time.Duration
}

// Service drives one ingestion cycle over a batch of quotes: for each
// quote it loads or creates the matching instrument, applies the update
// rule, persists, runs variation detection and notifies on significance.
// Each symbol is processed within its own unit of work so one bad quote
// cannot affect the others in the batch.
type Service struct {
	feed     domain.QuoteFeed
	store    domain.InstrumentStore
	detector *variation.Detector
	notifier domain.RateChangeNotifier
	clock    domain.Clock
	logger   *logrus.Logger
	cfg      Config
}

// NewService creates an ingestion service. Zero-valued Config fields fall
// back to the recommended defaults (5% threshold, 24h window, 5m margin).
func NewService(
	feed domain.QuoteFeed,
	store domain.InstrumentStore,
	detector *variation.Detector,
	notifier domain.RateChangeNotifier,
	clock domain.Clock,
	logger *logrus.Logger,
	cfg Config,
) *Service {
	if cfg.Threshold.IsZero() {
		cfg.Threshold = variation.DefaultThreshold
	}
	if cfg.LookbackWindow == 0 {
		cfg.LookbackWindow = domain.DefaultLookbackWindow
	}
	if cfg.EvictionMargin == 0 {
		cfg.EvictionMargin = domain.DefaultEvictionMargin
	}
	return &Service{
		feed:     feed,
		store:    store,
		detector: detector,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// RunCycle fetches the latest quote batch and processes each quote
// independently. Per-symbol failures are logged and isolated; a failure
// to fetch the batch aborts the whole cycle and is returned so the next
// scheduled trigger can retry.
func (s *Service) RunCycle(ctx context.Context) error {
	s.logger.Info("ingestion cycle started, fetching latest quotes")

	quotes, err := s.feed.FetchLatestQuotes(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch quotes, aborting cycle")
		return fmt.Errorf("fetch latest quotes: %w", err)
	}
	if len(quotes) == 0 {
		s.logger.Warn("quote feed returned no data")
		s.logger.Info("ingestion cycle completed")
		return nil
	}

	for _, quote := range quotes {
		if quote.Price == nil {
			s.logger.WithField("symbol", quote.Symbol).
				Warn("no price in reference currency, skipping quote")
			continue
		}
		if err := s.processQuote(ctx, quote); err != nil {
			s.logger.WithError(err).WithField("symbol", quote.Symbol).
				Error("failed to process quote")
		}
	}

	s.logger.Info("ingestion cycle completed")
	return nil
}

// processQuote runs the load-mutate-persist-detect-notify sequence for a
// single quote inside one unit of work. Stale quotes are a no-op. The
// notification is best-effort: its failure is logged but never unwinds
// the persisted update.
func (s *Service) processQuote(ctx context.Context, quote domain.Quote) error {
	newRate, err := domain.NewMoney(*quote.Price, quote.Currency)
	if err != nil {
		return fmt.Errorf("build rate from quote: %w", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}

	log := s.logger.WithField("symbol", quote.Symbol)

	instrument, err := s.store.GetBySymbol(ctx, uow, quote.Symbol)
	if err != nil {
		s.rollback(uow, log)
		return fmt.Errorf("load instrument: %w", err)
	}

	switch {
	case instrument == nil:
		instrument, err = domain.NewInstrument(quote.Symbol, quote.Name, newRate, quote.ObservedAt,
			domain.WithRetentionWindow(s.cfg.LookbackWindow, s.cfg.EvictionMargin))
		if err != nil {
			s.rollback(uow, log)
			return fmt.Errorf("create instrument: %w", err)
		}
		if err := s.store.Insert(ctx, uow, instrument); err != nil {
			s.rollback(uow, log)
			return fmt.Errorf("insert instrument: %w", err)
		}
		log.WithField("rate", instrument.CurrentRate().String()).Info("added new instrument")

	case quote.ObservedAt.After(instrument.LastUpdated()):
		if err := instrument.UpdateRate(newRate, quote.ObservedAt, s.clock.Now()); err != nil {
			s.rollback(uow, log)
			return fmt.Errorf("update rate: %w", err)
		}
		if err := s.store.Update(ctx, uow, instrument); err != nil {
			s.rollback(uow, log)
			return fmt.Errorf("persist instrument: %w", err)
		}
		log.WithField("rate", instrument.CurrentRate().String()).Info("updated instrument")

	default:
		// Duplicate or out-of-order delivery: the stored state is already
		// at least as recent, so the quote is a no-op.
		log.Info("quote is not newer than stored state, skipping")
		s.rollback(uow, log)
		return nil
	}

	result := s.detector.Check(instrument, s.cfg.Threshold)
	if result.IsSignificant {
		fields := logrus.Fields{
			"percentage_change": result.PercentageChange.String(),
			"current_rate":      result.CurrentRate.String(),
		}
		if result.OldestRate != nil {
			fields["oldest_rate"] = result.OldestRate.String()
		}
		log.WithFields(fields).Warn("significant rate variation detected")

		if err := s.notifier.NotifyRateChange(ctx, result.Symbol, result.CurrentRate); err != nil {
			log.WithError(err).Error("failed to publish rate change notification")
		}
	} else {
		log.WithField("percentage_change", result.PercentageChange.String()).
			Info("no significant rate variation")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (s *Service) rollback(uow domain.UnitOfWork, log *logrus.Entry) {
	if err := uow.Rollback(); err != nil {
		log.WithError(err).Error("failed to roll back unit of work")
	}
}
