package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"congress-trade-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// The provider caps both congressional endpoints at 100 records per call.
	MaxLimitPerChamber = 100

	ChamberHouse  = "House"
	ChamberSenate = "Senate"

	houseEndpoint  = "v4/house-trading"
	senateEndpoint = "v4/senate-trading"
)

// ErrQuotaExceeded is returned once the daily request budget is spent.
// Callers must not retry until the budget resets.
var ErrQuotaExceeded = errors.New("daily API request quota exceeded")

// ClientInterface defines the interface for the FMP disclosure client.
// The string slice returned alongside the records lists per-record
// normalization rejections; they are reported, never fatal.
type ClientInterface interface {
	FetchChamberTrades(ctx context.Context, chamber string, limit int) ([]TradeRecord, []string, error)
	FetchAll(ctx context.Context, limitPerChamber int) ([]TradeRecord, []string, error)
}

// Client fetches congressional trading disclosures from the Financial
// Modeling Prep API. It implements the ClientInterface.
//
// Rate limiting, the daily quota and the response cache are all scoped
// to one Client instance; concurrent sync runs sharing a Client share
// its budget.
type Client struct {
	client     *resty.Client
	apiKey     string
	logger     *zap.Logger
	limiter    *rate.Limiter
	normalizer *Normalizer

	dailyLimit int
	cooldown   time.Duration
	cacheTTL   time.Duration

	mu           sync.Mutex
	requestsMade int
	quotaDay     time.Time
	cache        map[string]cacheEntry
}

type cacheEntry struct {
	data      []RawTrade
	fetchedAt time.Time
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new FMP API client.
func NewClient(cfg *config.FMP, logger *zap.Logger) *Client {
	if cfg.ApiKey == "" {
		logger.Warn("No FMP API key configured, mock disclosure data will be served")
	}

	client := resty.New().SetBaseURL(cfg.BaseURL)

	// One request per second keeps us inside the provider's minimum
	// inter-request spacing. The limiter only delays this client's own
	// requests; unrelated clients are unaffected.
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)

	return &Client{
		client:     client,
		apiKey:     cfg.ApiKey,
		logger:     logger,
		limiter:    limiter,
		normalizer: NewNormalizer(logger),
		dailyLimit: cfg.DailyLimit,
		cooldown:   time.Duration(cfg.RateLimitCooldown) * time.Second,
		cacheTTL:   time.Duration(cfg.CacheTTLSeconds) * time.Second,
		cache:      make(map[string]cacheEntry),
	}
}

// cachedResponse returns a still-fresh cached response for the key, if any.
func (c *Client) cachedResponse(key string) ([]RawTrade, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Since(entry.fetchedAt) >= c.cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) storeResponse(key string, data []RawTrade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{data: data, fetchedAt: time.Now()}
}

// consumeQuota reserves one request from the daily budget. The budget
// is per UTC calendar day; the counter zeroes on day rollover so a
// long-lived client is not starved after its first dailyLimit requests.
func (c *Client) consumeQuota() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := time.Now().UTC().Truncate(24 * time.Hour)
	if !day.Equal(c.quotaDay) {
		c.quotaDay = day
		c.requestsMade = 0
	}

	if c.requestsMade >= c.dailyLimit {
		return fmt.Errorf("%w (limit %d)", ErrQuotaExceeded, c.dailyLimit)
	}
	c.requestsMade++
	return nil
}

// makeRequest fetches raw disclosure records from one endpoint, going
// through the cache, the daily quota and the request-spacing limiter.
// An upstream 429 is retried exactly once after the cooldown; any other
// non-2xx response fails immediately.
func (c *Client) makeRequest(ctx context.Context, endpoint string, limit int) ([]RawTrade, error) {
	if c.apiKey == "" {
		return mockRawTrades(endpoint), nil
	}

	cacheKey := fmt.Sprintf("%s?limit=%d", endpoint, limit)
	if data, ok := c.cachedResponse(cacheKey); ok {
		c.logger.Debug("Cache hit", zap.String("endpoint", endpoint))
		return data, nil
	}

	retried := false
	for {
		if err := c.consumeQuota(); err != nil {
			return nil, err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		var raw []RawTrade
		c.logger.Info("Making FMP API request", zap.String("endpoint", endpoint), zap.Int("limit", limit))
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParam("limit", fmt.Sprintf("%d", limit)).
			SetQueryParam("apikey", c.apiKey).
			SetResult(&raw).
			Get("/" + endpoint)
		if err != nil {
			return nil, fmt.Errorf("FMP request failed: %w", err)
		}

		if resp.StatusCode() == http.StatusTooManyRequests && !retried {
			retried = true
			c.logger.Warn("FMP rate limit hit, cooling down before one retry",
				zap.Duration("cooldown", c.cooldown))
			select {
			case <-time.After(c.cooldown):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if resp.IsError() {
			return nil, fmt.Errorf("FMP API error: %s: %s", resp.Status(), resp.String())
		}

		c.logger.Info("FMP API success", zap.Int("records", len(raw)))
		c.storeResponse(cacheKey, raw)
		return raw, nil
	}
}

// FetchChamberTrades fetches and normalizes disclosures for one chamber.
// Records that fail normalization are skipped and reported in the
// returned rejection list, never fatal.
func (c *Client) FetchChamberTrades(ctx context.Context, chamber string, limit int) ([]TradeRecord, []string, error) {
	endpoint := senateEndpoint
	if chamber == ChamberHouse {
		endpoint = houseEndpoint
	}

	if limit > MaxLimitPerChamber {
		limit = MaxLimitPerChamber
	}

	raw, err := c.makeRequest(ctx, endpoint, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s trades: %w", chamber, err)
	}

	trades := make([]TradeRecord, 0, len(raw))
	var rejections []string
	for _, item := range raw {
		trade, err := c.normalizer.Normalize(item, chamber)
		if err != nil {
			c.logger.Warn("Skipping malformed disclosure record",
				zap.String("chamber", chamber),
				zap.Error(err))
			rejections = append(rejections, fmt.Sprintf("skipped malformed %s record: %v", chamber, err))
			continue
		}
		trades = append(trades, *trade)
	}

	c.logger.Info("Processed chamber trades",
		zap.String("chamber", chamber),
		zap.Int("count", len(trades)),
		zap.Int("rejected", len(rejections)))
	return trades, rejections, nil
}

type chamberResult struct {
	chamber    string
	trades     []TradeRecord
	rejections []string
	err        error
}

// FetchAll fetches House and Senate disclosures concurrently. Either
// chamber may fail independently; whatever succeeded is kept. When both
// chambers come back empty the deterministic fallback set is substituted
// so downstream reconciliation stays exercisable. The combined list is
// sorted by transaction date, most recent first.
func (c *Client) FetchAll(ctx context.Context, limitPerChamber int) ([]TradeRecord, []string, error) {
	c.logger.Info("Fetching all congressional trades", zap.Int("limit_per_chamber", limitPerChamber))

	chambers := []string{ChamberSenate, ChamberHouse}
	results := make(chan chamberResult, len(chambers))

	var wg sync.WaitGroup
	for _, chamber := range chambers {
		wg.Add(1)
		go func(chamber string) {
			defer wg.Done()
			trades, rejections, err := c.FetchChamberTrades(ctx, chamber, limitPerChamber)
			results <- chamberResult{chamber: chamber, trades: trades, rejections: rejections, err: err}
		}(chamber)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []TradeRecord
	var rejections []string
	for res := range results {
		if res.err != nil {
			c.logger.Error("Chamber fetch failed, continuing with the other chamber",
				zap.String("chamber", res.chamber),
				zap.Error(res.err))
			rejections = append(rejections, fmt.Sprintf("%s fetch failed: %v", res.chamber, res.err))
			continue
		}
		all = append(all, res.trades...)
		rejections = append(rejections, res.rejections...)
	}

	if len(all) == 0 {
		c.logger.Info("No trades available from either chamber, using fallback data")
		all = fallbackTrades()
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].TransactionDate.After(all[j].TransactionDate)
	})

	c.logger.Info("Total trades fetched", zap.Int("count", len(all)))
	return all, rejections, nil
}
