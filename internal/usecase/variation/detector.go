package variation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultThreshold is the significance threshold used when no deployment
// override is configured: a 5% relative change.
var DefaultThreshold = decimal.NewFromFloat(0.05)

// CheckResult is the outcome of one variation check. OldestRate is nil
// when no sample qualified within the lookback window. The comparison
// basis is always returned so callers can log it regardless of
// significance.
type CheckResult struct {
	Symbol           string
	IsSignificant    bool
	PercentageChange decimal.Decimal
	OldestRate       *domain.Money
	CurrentRate      domain.Money
}

// Detector computes whether an instrument's price moved significantly
// over a fixed lookback window. It is stateless: both the window and the
// threshold are tunable without touching the aggregate.
type Detector struct {
	lookback time.Duration
	clock    domain.Clock
	logger   *logrus.Logger
}

// NewDetector creates a detector with the given lookback window.
func NewDetector(lookback time.Duration, clock domain.Clock, logger *logrus.Logger) *Detector {
	return &Detector{
		lookback: lookback,
		clock:    clock,
		logger:   logger,
	}
}

// Check compares the instrument's current rate against the oldest sample
// within the lookback window and reports whether the absolute relative
// change strictly exceeds the threshold.
//
// No qualifying sample, or a zero-valued oldest rate, makes the relative
// change meaningless and yields a not-significant result with a zero
// change. A currency mismatch between the oldest and current rates should
// be impossible given the aggregate's invariant; it is reported as a
// logged anomaly, not an error.
func (d *Detector) Check(instrument *domain.Instrument, threshold decimal.Decimal) CheckResult {
	currentRate := instrument.CurrentRate()

	oldestEntry, found := instrument.OldestRateWithin(d.lookback, d.clock.Now())
	if !found {
		d.logger.WithField("symbol", instrument.Symbol()).
			Debug("no historical sample within lookback window, skipping variation check")
		return CheckResult{
			Symbol:           instrument.Symbol(),
			PercentageChange: decimal.Zero,
			CurrentRate:      currentRate,
		}
	}

	oldestRate := oldestEntry.Rate()
	if oldestRate.IsZero() {
		d.logger.WithField("symbol", instrument.Symbol()).
			Debug("oldest rate within lookback window is zero, skipping variation check")
		return CheckResult{
			Symbol:           instrument.Symbol(),
			PercentageChange: decimal.Zero,
			OldestRate:       &oldestRate,
			CurrentRate:      currentRate,
		}
	}

	if oldestRate.Currency() != currentRate.Currency() {
		d.logger.WithFields(logrus.Fields{
			"symbol":           instrument.Symbol(),
			"oldest_currency":  oldestRate.Currency(),
			"current_currency": currentRate.Currency(),
		}).Error("currency mismatch between oldest and current rates, cannot calculate variation")
		return CheckResult{
			Symbol:           instrument.Symbol(),
			PercentageChange: decimal.Zero,
			OldestRate:       &oldestRate,
			CurrentRate:      currentRate,
		}
	}

	percentageChange := currentRate.Amount().Sub(oldestRate.Amount()).Abs().Div(oldestRate.Amount())

	return CheckResult{
		Symbol:           instrument.Symbol(),
		IsSignificant:    percentageChange.GreaterThan(threshold),
		PercentageChange: percentageChange,
		OldestRate:       &oldestRate,
		CurrentRate:      currentRate,
	}
}
