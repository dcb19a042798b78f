package models

import "time"

// Client is a billed tenant operating one or more voice agents.
// BalanceSeconds is the prepaid entitlement; it may dip negative briefly
// while a session's final reconciliation races a periodic deduction.
type Client struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	OwnerID        string    `gorm:"size:64;index;default:''" json:"owner_id,omitempty"`
	BalanceSeconds int64     `gorm:"not null;default:0" json:"balance_seconds"`
	ModelID        string    `gorm:"size:128;default:''" json:"model_id,omitempty"`
	VoiceID        string    `gorm:"size:64;default:''" json:"voice_id,omitempty"`
	PhoneNumber    string    `gorm:"size:32;index;default:''" json:"phone_number,omitempty"`
	CalendarID     string    `gorm:"size:255;default:''" json:"calendar_id,omitempty"`
	BusinessHours  string    `gorm:"type:text;default:''" json:"business_hours,omitempty"`
	Greeting       string    `gorm:"type:text;default:''" json:"greeting,omitempty"`
	IsActive       bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ClientConfig is the read-only view of a client that a running session
// needs: which model to bill against and how the agent should behave.
type ClientConfig struct {
	ClientID      string `json:"client_id"`
	Name          string `json:"name"`
	OwnerID       string `json:"owner_id,omitempty"`
	ModelID       string `json:"model_id"`
	VoiceID       string `json:"voice_id,omitempty"`
	CalendarID    string `json:"calendar_id,omitempty"`
	BusinessHours string `json:"business_hours,omitempty"`
	Greeting      string `json:"greeting,omitempty"`
}
