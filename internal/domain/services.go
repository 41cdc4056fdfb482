package domain

import "context"

// QuoteFeed is the upstream price-feed collaborator.
type QuoteFeed interface {
	// FetchLatestQuotes returns the current price batch, one quote per
	// tradable symbol. An empty batch is a valid "nothing to do" outcome.
	FetchLatestQuotes(ctx context.Context) ([]Quote, error)
}

// RateChangeNotifier publishes a notification that an instrument's rate
// moved significantly. Delivery guarantees are the transport's concern;
// callers treat it as best-effort.
type RateChangeNotifier interface {
	NotifyRateChange(ctx context.Context, symbol string, rate Money) error
}
