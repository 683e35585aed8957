package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/pkg/logger"
)

const (
	// DefaultBaseURL is the public CoinGecko v3 API.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	defaultCacheSize = 256
	defaultCacheTTL  = 30 * time.Second
	defaultTimeout   = 15 * time.Second
)

// ErrSymbolNotFound is returned when CoinGecko has no USD price for a symbol.
var ErrSymbolNotFound = xerrors.New(xerrors.CodeNotFound, "Symbol not found on CoinGecko.")

// Trend texts returned by Predict.
const (
	TrendStable       = "😐 Stable / unclear trend"
	SignalBullish     = "📈 UP (Bullish)"
	SignalBearish     = "📉 DOWN (Bearish)"
	noMarketDataText  = "⚠️ Not enough market data"
	emptyResponseText = "⚠️ API returned empty data"
)

var priceIDs = map[string]string{
	"SEI":   "sei",
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"SOL":   "solana",
	"MATIC": "matic-network",
}

var predictIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SEI":   "sei-network",
	"SOL":   "solana",
	"MATIC": "matic-network",
}

var signalIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SEI":  "sei-network",
	"USDC": "usd-coin",
}

// Config describes the CoinGecko client.
type Config struct {
	BaseURL   string
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// CoinGecko implements Oracle against the CoinGecko REST API. USD prices are
// cached per coin id for CacheTTL.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
	prices     *expirable.LRU[string, float64]
	log        *slog.Logger
}

// NewCoinGecko creates a CoinGecko oracle.
func NewCoinGecko(cfg Config) *CoinGecko {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CoinGecko{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		prices:     expirable.NewLRU[string, float64](size, nil, ttl),
		log:        logger.Named("oracle"),
	}
}

// Price returns the USD price of symbol. Unknown symbols are looked up by
// their lower-cased name; SEI additionally tries the sei-network id.
func (c *CoinGecko) Price(ctx context.Context, symbol string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	id, ok := priceIDs[s]
	if !ok {
		id = strings.ToLower(s)
	}
	ids := []string{id}
	if s == "SEI" {
		ids = append(ids, "sei-network")
	}

	for _, k := range ids {
		if p, ok := c.prices.Get(k); ok {
			metrics.OracleCacheHits.WithLabelValues("hit").Inc()
			return p, nil
		}
	}
	metrics.OracleCacheHits.WithLabelValues("miss").Inc()

	quotes, err := c.simplePrice(ctx, ids, false)
	if err != nil {
		return 0, err
	}
	for _, k := range ids {
		if q, ok := quotes[k]; ok && q.USD != nil {
			c.prices.Add(k, *q.USD)
			return *q.USD, nil
		}
	}
	return 0, ErrSymbolNotFound
}

// Predict compares the last two points of the one-day USD market chart.
// Unsupported symbols and sparse data produce a Prediction without a price
// rather than an error.
func (c *CoinGecko) Predict(ctx context.Context, symbol string) (Prediction, error) {
	id, ok := predictIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Prediction{Text: fmt.Sprintf("⚠️ Unsupported token: %s", symbol)}, nil
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(id),
		url.Values{"vs_currency": {"usd"}, "days": {"1"}}.Encode())
	var chart struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, endpoint, &chart); err != nil {
		return Prediction{}, err
	}
	if chart.Prices == nil {
		return Prediction{Text: emptyResponseText}, nil
	}
	if len(chart.Prices) < 2 {
		return Prediction{Text: noMarketDataText}, nil
	}

	prev := chart.Prices[len(chart.Prices)-2]
	last := chart.Prices[len(chart.Prices)-1]
	if len(prev) < 2 || len(last) < 2 {
		return Prediction{Text: noMarketDataText}, nil
	}

	text := TrendStable
	switch {
	case last[1] > prev[1]:
		text = fmt.Sprintf("%s likely to go UP 📈", symbol)
	case last[1] < prev[1]:
		text = fmt.Sprintf("%s likely to go DOWN 📉", symbol)
	}
	return Prediction{Price: last[1], HasPrice: true, Text: text}, nil
}

// Signal reports the direction of the 24h USD change.
func (c *CoinGecko) Signal(ctx context.Context, symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = "BTC"
	}
	id, ok := signalIDs[s]
	if !ok {
		id = strings.ToLower(s)
	}
	quotes, err := c.simplePrice(ctx, []string{id}, true)
	if err != nil {
		return "", err
	}
	q, ok := quotes[id]
	if !ok {
		return "", errors.New("Invalid symbol or not supported.")
	}
	if q.Change24h != nil && *q.Change24h > 0 {
		return SignalBullish, nil
	}
	return SignalBearish, nil
}

type quote struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

func (c *CoinGecko) simplePrice(ctx context.Context, ids []string, withChange bool) (map[string]quote, error) {
	params := url.Values{"ids": {strings.Join(ids, ",")}, "vs_currencies": {"usd"}}
	if withChange {
		params.Set("include_24hr_change", "true")
	}
	var out map[string]quote
	if err := c.getJSON(ctx, c.baseURL+"/simple/price?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CoinGecko) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build CoinGecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("CoinGecko 请求失败", slog.String("endpoint", endpoint), slog.Any("error", err))
		if errors.Is(err, context.DeadlineExceeded) {
			return xerrors.Wrap(xerrors.CodeTimeout, err, "CoinGecko request timed out")
		}
		return fmt.Errorf("CoinGecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("CoinGecko returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode CoinGecko response: %w", err)
	}
	return nil
}

var _ Oracle = (*CoinGecko)(nil)
