package models

import "time"

// SystemSetting is one key/value row of the rate catalog
// (e.g. twilio_cost_per_min = "0.0085").
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"size:64;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// ModelPrice mirrors one row of the OpenRouter pricing feed. Prices are USD
// per unit (token or request) exactly as published upstream.
type ModelPrice struct {
	ID              string    `gorm:"primaryKey;size:128" json:"id"`
	InputPrice      float64   `gorm:"not null;default:0" json:"input_price"`
	OutputPrice     float64   `gorm:"not null;default:0" json:"output_price"`
	PerRequestPrice float64   `gorm:"not null;default:0" json:"per_request_price"`
	ImagePrice      float64   `gorm:"not null;default:0" json:"image_price"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ModelPrice) TableName() string {
	return "model_prices"
}

// MinutePackage is a purchasable block of prepaid conversation minutes.
type MinutePackage struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null;size:100" json:"name"`
	Description   string    `gorm:"type:text;default:''" json:"description,omitempty"`
	Minutes       int64     `gorm:"not null" json:"minutes"`
	PriceUSD      float64   `gorm:"not null" json:"price_usd"`
	StripePriceID string    `gorm:"uniqueIndex;not null;size:100" json:"stripe_price_id"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
