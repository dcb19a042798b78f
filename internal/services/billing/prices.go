package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPriceFeedURL  = "https://openrouter.ai/api/v1/models"
	defaultPriceCacheTTL = 10 * time.Minute
	priceCacheKeyPrefix  = "model_price:"
)

// PriceService looks up per-token model prices and refreshes them from the
// upstream pricing feed. Lookups go Redis cache -> database -> zero. An
// unknown model id prices at zero; that undercounts cost in financial
// reports but never fails a session.
type PriceService struct {
	db      *gorm.DB
	redis   *redis.Client
	ttl     time.Duration
	feedURL string
	client  *http.Client
}

func NewPriceService(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) *PriceService {
	if ttl <= 0 {
		ttl = defaultPriceCacheTTL
	}
	return &PriceService{
		db:      db,
		redis:   redisClient,
		ttl:     ttl,
		feedURL: defaultPriceFeedURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// ModelPrice returns the stored price for modelID, or a zero price when the
// model is unknown or the datastore is unreachable.
func (s *PriceService) ModelPrice(ctx context.Context, modelID string) models.ModelPrice {
	zero := models.ModelPrice{ID: modelID}
	if modelID == "" {
		return zero
	}

	if cached, ok := s.fromCache(ctx, modelID); ok {
		return cached
	}

	var price models.ModelPrice
	err := s.db.WithContext(ctx).Where("id = ?", modelID).First(&price).Error
	if err == gorm.ErrRecordNotFound {
		fiberlog.Warnf("PriceService: no price for model %s, costing at zero", modelID)
		return zero
	}
	if err != nil {
		fiberlog.Warnf("PriceService: price lookup failed for model %s: %v", modelID, err)
		return zero
	}

	s.toCache(ctx, price)
	return price
}

func (s *PriceService) fromCache(ctx context.Context, modelID string) (models.ModelPrice, bool) {
	if s.redis == nil {
		return models.ModelPrice{}, false
	}
	raw, err := s.redis.Get(ctx, priceCacheKeyPrefix+modelID).Bytes()
	if err != nil {
		return models.ModelPrice{}, false
	}
	var price models.ModelPrice
	if err := json.Unmarshal(raw, &price); err != nil {
		return models.ModelPrice{}, false
	}
	return price, true
}

func (s *PriceService) toCache(ctx context.Context, price models.ModelPrice) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(price)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, priceCacheKeyPrefix+price.ID, raw, s.ttl).Err(); err != nil {
		fiberlog.Debugf("PriceService: cache write failed for model %s: %v", price.ID, err)
	}
}

// feedModel mirrors one entry of the OpenRouter /models response. The feed
// publishes prices as decimal strings.
type feedModel struct {
	ID      string `json:"id"`
	Pricing struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
		Request    string `json:"request"`
		Image      string `json:"image"`
	} `json:"pricing"`
}

type feedResponse struct {
	Data []feedModel `json:"data"`
}

// SyncPrices pulls the upstream pricing feed and upserts every model row.
// Returns the number of rows synced.
func (s *PriceService) SyncPrices(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price feed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fiberlog.Debugf("PriceService: closing feed body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return 0, fmt.Errorf("failed to decode price feed: %w", err)
	}

	prices := make([]models.ModelPrice, 0, len(feed.Data))
	for _, m := range feed.Data {
		if m.ID == "" {
			continue
		}
		prices = append(prices, models.ModelPrice{
			ID:              m.ID,
			InputPrice:      parseFeedPrice(m.Pricing.Prompt),
			OutputPrice:     parseFeedPrice(m.Pricing.Completion),
			PerRequestPrice: parseFeedPrice(m.Pricing.Request),
			ImagePrice:      parseFeedPrice(m.Pricing.Image),
		})
	}

	if len(prices) == 0 {
		return 0, fmt.Errorf("price feed contained no models")
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(&prices, 500).Error; err != nil {
		return 0, fmt.Errorf("failed to upsert model prices: %w", err)
	}

	fiberlog.Infof("PriceService: synced %d model prices", len(prices))
	return len(prices), nil
}

func parseFeedPrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
