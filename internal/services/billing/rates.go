package billing

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rate catalog keys.
const (
	RateTwilioPerMinute = "twilio_cost_per_min"
	RateSTTPerMinute    = "stt_cost_per_min"
	RateTTSPerCharacter = "tts_cost_per_char"
)

// Fallback unit rates used when the datastore is unreachable or a key is
// absent: Twilio inbound per minute, Deepgram Nova-2 per minute, Cartesia
// per character.
var defaultRates = map[string]float64{
	RateTwilioPerMinute: 0.0085,
	RateSTTPerMinute:    0.0043,
	RateTTSPerCharacter: 0.00005,
}

const defaultRateCacheTTL = 5 * time.Minute

// RateCatalog is a TTL-cached read-through over the system_settings table.
// The session governor only reads from it; writes come from the admin
// surface.
type RateCatalog struct {
	db  *gorm.DB
	ttl time.Duration

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewRateCatalog(db *gorm.DB, ttl time.Duration) *RateCatalog {
	if ttl <= 0 {
		ttl = defaultRateCacheTTL
	}
	return &RateCatalog{db: db, ttl: ttl}
}

// Rate returns the current value for key, falling back to the hard-coded
// default when the row or the datastore is unavailable.
func (c *RateCatalog) Rate(ctx context.Context, key string) float64 {
	rates := c.cached(ctx)
	if v, ok := rates[key]; ok {
		return v
	}
	return defaultRates[key]
}

// All returns every known rate, defaults merged under fetched rows.
func (c *RateCatalog) All(ctx context.Context) map[string]float64 {
	merged := make(map[string]float64, len(defaultRates))
	for k, v := range defaultRates {
		merged[k] = v
	}
	for k, v := range c.cached(ctx) {
		merged[k] = v
	}
	return merged
}

// Upsert writes a rate row and drops the cache so the next read sees it.
func (c *RateCatalog) Upsert(ctx context.Context, key string, value float64) error {
	setting := models.SystemSetting{
		Key:   key,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
	if err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error; err != nil {
		return fmt.Errorf("failed to upsert system rate %s: %w", key, err)
	}

	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	fiberlog.Infof("RateCatalog: updated %s = %f", key, value)
	return nil
}

func (c *RateCatalog) cached(ctx context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rates != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.rates
	}

	var settings []models.SystemSetting
	if err := c.db.WithContext(ctx).Find(&settings).Error; err != nil {
		fiberlog.Warnf("RateCatalog: fetch failed, serving defaults: %v", err)
		// Keep any stale cache rather than flushing to defaults.
		if c.rates != nil {
			return c.rates
		}
		return nil
	}

	rates := make(map[string]float64, len(settings))
	for _, s := range settings {
		v, err := strconv.ParseFloat(s.Value, 64)
		if err != nil {
			fiberlog.Warnf("RateCatalog: skipping non-numeric rate %s=%q", s.Key, s.Value)
			continue
		}
		rates[s.Key] = v
	}

	c.rates = rates
	c.fetchedAt = time.Now()
	return c.rates
}
