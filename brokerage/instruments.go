package brokerage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"floatflow/config"
	"floatflow/logger"
)

// instrumentsResponse is the slice of the lookup body we care about: a
// non-empty results collection means the instrument is listed.
type instrumentsResponse struct {
	Results []json.RawMessage `json:"results"`
}

// Client answers "does the brokerage list this ticker?". The default is
// closed-world: any failure, non-2xx status or empty result set counts as
// not supported.
type Client struct {
	config *config.Config
	client *http.Client
	log    *logger.Log
}

func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	c := &Client{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Eligibility.TimeoutSec) * time.Second},
		log:    log,
	}

	log.WithComponent("eligibility").WithFields(logger.Fields{
		"url":     cfg.Eligibility.URL,
		"timeout": cfg.Eligibility.TimeoutSec,
	}).Debug("brokerage client initialized")

	return c
}

// Supported reports whether the brokerage lists an instrument for the
// symbol. It never returns an error; lookups that cannot be completed
// yield false.
func (c *Client) Supported(ctx context.Context, symbol string) bool {
	log := c.log.WithComponent("eligibility").WithFields(logger.Fields{"symbol": symbol})

	supported := c.lookup(ctx, symbol, log)
	logger.IncrementEligibilityChecked(supported)
	return supported
}

func (c *Client) lookup(ctx context.Context, symbol string, log *logger.Entry) bool {
	reqURL := fmt.Sprintf("%s?symbol=%s", c.config.Eligibility.URL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.WithError(err).Debug("failed to build instruments request")
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("instruments lookup failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Debug("instruments lookup rejected")
		return false
	}

	var body instrumentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).Debug("failed to decode instruments response")
		return false
	}

	return len(body.Results) > 0
}
