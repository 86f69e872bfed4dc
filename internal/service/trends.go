package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/config"
)

// TrendItem is one news/narrative item for a topic.
type TrendItem struct {
	Title        string  `json:"post_title"`
	Creator      string  `json:"creator_display_name"`
	URL          string  `json:"post_link"`
	Sentiment    float64 `json:"post_sentiment"`
	Interactions int64   `json:"interactions_total"`
}

// TopicMetrics is the social/market pulse for a topic.
type TopicMetrics struct {
	Topic            string  `json:"topic"`
	SocialVolume24h  int64   `json:"social_volume_24h"`
	Interactions24h  int64   `json:"interactions_24h"`
	Contributors24h  int64   `json:"num_contributors"`
	SentimentAverage float64 `json:"types_sentiment"`
}

// MarketSource supplies external trend signals. A disabled source returns
// nil metrics and an empty trend list, not errors.
type MarketSource interface {
	TopicMetrics(ctx context.Context, topic string) (*TopicMetrics, error)
	TopicNews(ctx context.Context, topic string, limit int) ([]TrendItem, error)
}

// TrendsClient reads the LunarCrush v4 public API.
type TrendsClient struct {
	config *config.TrendsConfig
	logger *zap.Logger
	client *http.Client
}

func NewTrendsClient(cfg *config.TrendsConfig, logger *zap.Logger) *TrendsClient {
	if cfg.APIKey == "" {
		logger.Warn("Trends API key not configured, market signals disabled")
	}
	return &TrendsClient{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *TrendsClient) TopicMetrics(ctx context.Context, topic string) (*TopicMetrics, error) {
	if c.config.APIKey == "" {
		return nil, nil
	}
	if topic == "" {
		topic = c.config.DefaultTopic
	}

	var envelope struct {
		Data TopicMetrics `json:"data"`
	}
	url := fmt.Sprintf("%s/topic/%s/v1", c.config.BaseURL, topic)
	if err := c.get(ctx, url, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data.Topic == "" {
		envelope.Data.Topic = topic
	}
	return &envelope.Data, nil
}

func (c *TrendsClient) TopicNews(ctx context.Context, topic string, limit int) ([]TrendItem, error) {
	if c.config.APIKey == "" {
		return []TrendItem{}, nil
	}
	if topic == "" {
		topic = c.config.DefaultTopic
	}

	var envelope struct {
		Data []TrendItem `json:"data"`
	}
	url := fmt.Sprintf("%s/topic/%s/news/v1", c.config.BaseURL, topic)
	if err := c.get(ctx, url, &envelope); err != nil {
		return nil, err
	}

	items := envelope.Data
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *TrendsClient) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("trends API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
