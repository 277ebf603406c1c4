// internal/news/client.go
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

const maxAttempts = 3

// Client клиент внешнего сервиса новостного фона.
// Сервис опрашивается с пониженной частотой (раз в несколько циклов);
// его отказ трактуется вызывающим как нейтральный фон.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// sentimentResponse ответ сервиса
type sentimentResponse struct {
	Sentiment string `json:"sentiment"`
}

// NewClient создает клиент новостного фона
func NewClient(cfg config.NewsConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		baseURL: cfg.URL,
	}
}

// Check запрашивает новостной фон по активу с экспоненциальными
// повторами между попытками
func (c *Client) Check(ctx context.Context, asset string) (models.Sentiment, error) {
	if c.baseURL == "" {
		return models.SentimentNeutral, nil
	}

	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return models.SentimentNeutral, ctx.Err()
			}
		}

		sentiment, err := c.fetch(ctx, asset)
		if err == nil {
			return sentiment, nil
		}
		lastErr = err
	}

	return models.SentimentNeutral, fmt.Errorf("сервис новостного фона недоступен: %w", lastErr)
}

// fetch выполняет один запрос к сервису
func (c *Client) fetch(ctx context.Context, asset string) (models.Sentiment, error) {
	reqURL := fmt.Sprintf("%s?asset=%s", c.baseURL, url.QueryEscape(asset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.SentimentNeutral, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SentimentNeutral, fmt.Errorf("ошибка запроса новостного фона: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SentimentNeutral, fmt.Errorf("неожиданный статус ответа: %d", resp.StatusCode)
	}

	var payload sentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.SentimentNeutral, fmt.Errorf("ошибка разбора ответа: %w", err)
	}

	switch models.Sentiment(payload.Sentiment) {
	case models.SentimentBullish:
		return models.SentimentBullish, nil
	case models.SentimentBearish:
		return models.SentimentBearish, nil
	default:
		return models.SentimentNeutral, nil
	}
}
