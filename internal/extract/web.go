package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"goldwarehouse/internal/model"
)

// WebCollector fetches a JSON price feed over HTTP. Scraping and browser
// automation stay outside this system; feeds are expected to serve the same
// record arrays (or envelopes) the file drops contain.
type WebCollector struct {
	client *resty.Client
	url    string
}

// NewWebCollector creates a collector for the given feed URL.
func NewWebCollector(url string) *WebCollector {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &WebCollector{
		client: client,
		url:    url,
	}
}

func (c *WebCollector) Name() string { return "extract-web" }

func (c *WebCollector) Collect(ctx context.Context) ([]model.RawPriceRecord, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price feed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode())
	}

	records, err := DecodeRecords(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode price feed: %w", err)
	}

	return records, nil
}
