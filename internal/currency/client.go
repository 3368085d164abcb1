package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Converter turns an amount in one currency into another. The boolean
// reports whether a conversion was available; callers treat false as an
// absent normalized value, never as a request failure.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool)
}

type Config struct {
	APIURL          string
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Client fetches exchange rates over HTTP and keeps a small per-pair cache.
// A background worker re-fetches pairs that expenses have actually used, so
// steady-state conversions rarely pay the network round trip.
type Client struct {
	apiURL         string
	requestTimeout time.Duration
	cacheTTL       time.Duration
	httpClient     *http.Client
	logger         *slog.Logger

	mu    sync.RWMutex
	rates map[string]cachedRate

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	requestTimeout := config.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Second
	}
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	c := &Client{
		apiURL:         config.APIURL,
		requestTimeout: requestTimeout,
		cacheTTL:       cacheTTL,
		httpClient:     &http.Client{Timeout: requestTimeout},
		logger:         logger,
		rates:          make(map[string]cachedRate),
		ctx:            ctx,
		cancel:         cancel,
	}

	if config.RefreshInterval > 0 {
		c.wg.Add(1)
		go c.refreshLoop(config.RefreshInterval)
	}

	return c
}

func (c *Client) Shutdown() {
	c.cancel()
	c.wg.Wait()
	c.logger.Info("currency client shutdown complete")
}

// Convert normalizes amount from one currency into another. Identical
// currencies convert at rate 1 without touching the network. Any lookup
// failure or timeout yields (zero, false).
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	if from == "" || to == "" {
		return decimal.Decimal{}, false
	}
	if from == to {
		return amount, true
	}

	rate, ok := c.rateFor(ctx, from, to)
	if !ok {
		return decimal.Decimal{}, false
	}

	return amount.Mul(rate).Round(2), true
}

func (c *Client) rateFor(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	key := from + "/" + to

	c.mu.RLock()
	cached, found := c.rates[key]
	c.mu.RUnlock()

	if found && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.rate, true
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		c.logger.Warn("currency conversion unavailable",
			"from", from,
			"to", to,
			"error", err)
		// serve a stale rate over no rate at all
		if found {
			return cached.rate, true
		}
		return decimal.Decimal{}, false
	}

	c.mu.Lock()
	c.rates[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()

	return rate, true
}

func (c *Client) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/convert?%s", c.apiURL, url.Values{
		"from":   {from},
		"to":     {to},
		"amount": {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Result *json.Number `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if apiResponse.Result == nil {
		return decimal.Decimal{}, fmt.Errorf("rate API returned no result")
	}

	rate, err := decimal.NewFromString(apiResponse.Result.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid rate value %q: %w", apiResponse.Result.String(), err)
	}
	if rate.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate %s", rate)
	}

	return rate, nil
}

// refreshLoop re-fetches every cached pair so the cache stays warm for the
// pairs the company actually uses.
func (c *Client) refreshLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refreshCachedPairs()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) refreshCachedPairs() {
	c.mu.RLock()
	pairs := make([]string, 0, len(c.rates))
	for key := range c.rates {
		pairs = append(pairs, key)
	}
	c.mu.RUnlock()

	for _, key := range pairs {
		var from, to string
		if _, err := fmt.Sscanf(key, "%3s/%3s", &from, &to); err != nil {
			continue
		}

		rate, err := c.fetchRate(c.ctx, from, to)
		if err != nil {
			c.logger.Debug("rate refresh failed", "pair", key, "error", err)
			continue
		}

		c.mu.Lock()
		c.rates[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
		c.mu.Unlock()
	}
}
