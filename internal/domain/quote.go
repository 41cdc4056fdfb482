package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one entry of a fetched price batch, as delivered by the
// upstream feed. Price is nil when the feed carried no price in the
// tracked reference currency; such quotes are skipped by ingestion.
type Quote struct {
	Symbol     string
	Name       string
	Price      *decimal.Decimal
	Currency   string
	ObservedAt time.Time
}
