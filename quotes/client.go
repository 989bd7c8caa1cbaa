package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"floatflow/config"
	"floatflow/logger"
	"floatflow/models"
)

// Client fetches per-symbol fundamentals from the quote endpoint. Lookups
// never fail: every error path degrades to a record with nil fields so one
// bad symbol cannot abort a batch.
type Client struct {
	config *config.Config
	client *http.Client
	log    *logger.Log
}

func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	c := &Client{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Enrichment.TimeoutSec) * time.Second},
		log:    log,
	}

	log.WithComponent("quotes").WithFields(logger.Fields{
		"url":     cfg.Enrichment.URL,
		"timeout": cfg.Enrichment.TimeoutSec,
	}).Debug("quote client initialized")

	return c
}

// Fetch returns the enrichment record for one ticker. The float is taken
// from the first configured field holding a number greater than zero, then
// from string-typed fallback fields with thousands separators stripped.
// Name, exchange and market cap are extracted independently, so a record
// may carry a float with no name or a name with no float.
func (c *Client) Fetch(ctx context.Context, symbol string) models.FloatRecord {
	log := c.log.WithComponent("quotes").WithFields(logger.Fields{"symbol": symbol})

	fields, err := c.query(ctx, symbol)
	if err != nil {
		log.WithError(err).Debug("quote lookup failed")
		logger.IncrementQuoteFetched(false)
		return models.EmptyFloatRecord(symbol)
	}

	rec := models.FloatRecord{Symbol: symbol}

	if v, ok := c.extractFloat(fields); ok {
		rec.Float = &v
	}
	if s, ok := stringField(fields, "shortName"); ok {
		rec.ShortName = &s
	}
	if s, ok := stringField(fields, "exchange"); ok {
		rec.Exchange = &s
	}
	if v, ok := numericField(fields, "marketCap"); ok {
		rec.MarketCap = &v
	}

	logger.IncrementQuoteFetched(rec.HasFloat())
	return rec
}

// query issues the single GET for a symbol and decodes the body into a flat
// field map. The provider schema is treated as opaque beyond that.
func (c *Client) query(ctx context.Context, symbol string) (map[string]interface{}, error) {
	reqURL := fmt.Sprintf("%s?symbol=%s", c.config.Enrichment.URL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(c.log.WithComponent("quotes"), "quotes", "api_request", time.Since(start), logger.Fields{
		"symbol": symbol,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode)
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return fields, nil
}

// extractFloat walks the prioritized field lists and returns the first
// usable share count.
func (c *Client) extractFloat(fields map[string]interface{}) (int64, bool) {
	for _, key := range c.config.Enrichment.FloatFields {
		if v, ok := numericField(fields, key); ok && v > 0 {
			return int64(v), true
		}
	}

	// Some tickers report share counts as formatted strings.
	for _, key := range c.config.Enrichment.StringFields {
		s, ok := fields[key].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil || v <= 0 {
			continue
		}
		return int64(v), true
	}

	return 0, false
}

func numericField(fields map[string]interface{}, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringField(fields map[string]interface{}, key string) (string, bool) {
	s, ok := fields[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
