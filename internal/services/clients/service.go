package clients

import (
	"context"
	"fmt"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"gorm.io/gorm"
)

// Service is the tenant configuration store. The billing subsystem only
// reads from it; writes come from the admin surface.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns the full client record.
func (s *Service) Get(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ?", clientID).First(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to get client %s: %w", clientID, err)
	}
	return &client, nil
}

// GetByPhone resolves the client answering a given inbound number.
func (s *Service) GetByPhone(ctx context.Context, phoneNumber string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).
		Where("phone_number = ? AND is_active = ?", phoneNumber, true).
		First(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve client for number %s: %w", phoneNumber, err)
	}
	return &client, nil
}

// GetConfig returns the read-only view a running session needs.
func (s *Service) GetConfig(ctx context.Context, clientID string) (*models.ClientConfig, error) {
	client, err := s.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &models.ClientConfig{
		ClientID:      client.ID,
		Name:          client.Name,
		OwnerID:       client.OwnerID,
		ModelID:       client.ModelID,
		VoiceID:       client.VoiceID,
		CalendarID:    client.CalendarID,
		BusinessHours: client.BusinessHours,
		Greeting:      client.Greeting,
	}, nil
}

// Create inserts a new client.
func (s *Service) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		return fmt.Errorf("client id is required")
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// Update writes the mutable configuration fields. Balance is excluded: it
// only moves through the balance service.
func (s *Service) Update(ctx context.Context, client *models.Client) error {
	result := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", client.ID).
		Updates(map[string]any{
			"name":           client.Name,
			"owner_id":       client.OwnerID,
			"model_id":       client.ModelID,
			"voice_id":       client.VoiceID,
			"phone_number":   client.PhoneNumber,
			"calendar_id":    client.CalendarID,
			"business_hours": client.BusinessHours,
			"greeting":       client.Greeting,
			"is_active":      client.IsActive,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update client %s: %w", client.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("client %s not found", client.ID)
	}
	return nil
}

// List returns all clients.
func (s *Service) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}
