package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
)

// DefaultBaseURL is the production CoinMarketCap API root.
const DefaultBaseURL = "https://pro-api.coinmarketcap.com/v1"

const apiKeyHeader = "X-CMC_PRO_API_KEY"

// Client fetches the latest cryptocurrency listings from the
// CoinMarketCap API and maps them to domain quotes. It implements
// domain.QuoteFeed.
type Client struct {
	baseURL           string
	apiKey            string
	referenceCurrency string
	httpClient        *http.Client
}

// NewClient constructs a feed client. quotes are requested converted to
// the given reference currency (e.g. "USD").
func NewClient(baseURL, apiKey, referenceCurrency string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:           baseURL,
		apiKey:            apiKey,
		referenceCurrency: referenceCurrency,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// listingsResponse mirrors the relevant slice of the CoinMarketCap
// listings envelope. The quote object is keyed by conversion currency.
type listingsResponse struct {
	Data []struct {
		Name        string                  `json:"name"`
		Symbol      string                  `json:"symbol"`
		LastUpdated time.Time               `json:"last_updated"`
		Quote       map[string]listingQuote `json:"quote"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

type listingQuote struct {
	Price *float64 `json:"price"`
}

// FetchLatestQuotes loads the current listings batch. Transport and
// decode failures are both returned as errors; an empty data array is a
// valid empty batch.
func (c *Client) FetchLatestQuotes(ctx context.Context) ([]domain.Quote, error) {
	url := fmt.Sprintf("%s/cryptocurrency/listings/latest?convert=%s", c.baseURL, c.referenceCurrency)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building http request: %w", err)
	}
	request.Header.Set(apiKeyHeader, c.apiKey)

	httpResponse, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coinmarketcap returned status %d", httpResponse.StatusCode)
	}

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var response listingsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding listings json: %w", err)
	}
	if response.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("coinmarketcap error %d: %s", response.Status.ErrorCode, response.Status.ErrorMessage)
	}

	quotes := make([]domain.Quote, 0, len(response.Data))
	for _, listing := range response.Data {
		quote := domain.Quote{
			Symbol:     listing.Symbol,
			Name:       listing.Name,
			Currency:   c.referenceCurrency,
			ObservedAt: listing.LastUpdated,
		}
		if converted, ok := listing.Quote[c.referenceCurrency]; ok && converted.Price != nil {
			price := decimal.NewFromFloat(*converted.Price)
			quote.Price = &price
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}
