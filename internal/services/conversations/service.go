package conversations

import (
	"context"
	"fmt"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"gorm.io/gorm"
)

// Service persists finished call transcripts.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SaveConversation inserts the record and returns the identifier ledger
// rows reference.
func (s *Service) SaveConversation(ctx context.Context, conv *models.Conversation) (uint, error) {
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return 0, fmt.Errorf("failed to save conversation: %w", err)
	}
	return conv.ID, nil
}

// Get returns one conversation.
func (s *Service) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get conversation %d: %w", id, err)
	}
	return &conv, nil
}

// ListByClient returns a client's conversations, newest first.
func (s *Service) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]models.Conversation, error) {
	var convs []models.Conversation

	query := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return convs, nil
}
