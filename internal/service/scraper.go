package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/models"
)

// Scraper supplies the latest posts mentioning a handle. Implementations
// must treat provider failures as recoverable and return an error rather
// than panic; an empty slice with a nil error means "nothing found".
type Scraper interface {
	Scrape(ctx context.Context, handle string, maxItems int) ([]models.SocialPost, error)
}

// ScrapeClient talks to the scraping provider's asynchronous API: submit a
// run, poll it to a terminal status, then collect the items.
type ScrapeClient struct {
	config       *config.ScraperConfig
	logger       *zap.Logger
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

type scrapeRun struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type scrapeItem struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
	CreatedAt string   `json:"created_at"`
	Likes     int      `json:"likes"`
	Replies   int      `json:"replies"`
	Reposts   int      `json:"reposts"`
	Views     int      `json:"views"`
	MediaURLs []string `json:"media_urls"`
}

func NewScrapeClient(cfg *config.ScraperConfig, logger *zap.Logger) *ScrapeClient {
	if cfg.Token == "" {
		logger.Warn("Scraper token not configured, scraping disabled")
	}
	return &ScrapeClient{
		config:       cfg,
		logger:       logger,
		pollInterval: config.Duration(cfg.PollInterval, 2*time.Second),
		maxPolls:     60,
		client: &http.Client{
			Timeout: config.Duration(cfg.Timeout, 90*time.Second),
		},
	}
}

// Scrape runs one scrape for a handle. Without a token it is a no-op
// returning an empty batch.
func (c *ScrapeClient) Scrape(ctx context.Context, handle string, maxItems int) ([]models.SocialPost, error) {
	if c.config.Token == "" {
		return []models.SocialPost{}, nil
	}
	if maxItems <= 0 {
		maxItems = c.config.MaxItems
	}

	run, err := c.submitRun(ctx, handle, maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to submit scrape run: %w", err)
	}

	run, err = c.waitForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if run.Status != "SUCCEEDED" {
		return nil, fmt.Errorf("scrape run %s finished with status %s: %s", run.ID, run.Status, run.Error)
	}

	items, err := c.fetchItems(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scrape items: %w", err)
	}

	posts := make([]models.SocialPost, 0, len(items))
	for _, item := range items {
		post := models.SocialPost{
			ID:        item.ID,
			Text:      item.Text,
			Author:    item.Author,
			Likes:     item.Likes,
			Replies:   item.Replies,
			Reposts:   item.Reposts,
			Views:     item.Views,
			MediaURLs: item.MediaURLs,
		}
		if ts, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			post.PostedAt = ts
		}
		posts = append(posts, post)
	}

	c.logger.Debug("Scrape completed",
		zap.String("handle", handle),
		zap.Int("posts", len(posts)))

	return posts, nil
}

func (c *ScrapeClient) submitRun(ctx context.Context, handle string, maxItems int) (*scrapeRun, error) {
	body := map[string]interface{}{
		"handle":    handle,
		"max_items": maxItems,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1/runs", c.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")

	var run scrapeRun
	if err := c.do(req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// waitForRun polls until the run reaches a terminal status, the context is
// cancelled, or the poll budget runs out. A provider stuck in a
// non-terminal status must not stall the rest of the cycle.
func (c *ScrapeClient) waitForRun(ctx context.Context, runID string) (*scrapeRun, error) {
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		url := fmt.Sprintf("%s/v1/runs/%s", c.config.BaseURL, runID)
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.Token)

		var run scrapeRun
		if err := c.do(req, &run); err != nil {
			return nil, err
		}

		switch run.Status {
		case "SUCCEEDED", "FAILED", "ABORTED", "TIMED_OUT":
			return &run, nil
		}
	}

	return nil, fmt.Errorf("scrape run %s did not reach a terminal status after %d polls", runID, c.maxPolls)
}

func (c *ScrapeClient) fetchItems(ctx context.Context, runID string) ([]scrapeItem, error) {
	url := fmt.Sprintf("%s/v1/runs/%s/items", c.config.BaseURL, runID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	var items []scrapeItem
	if err := c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *ScrapeClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scraper API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
