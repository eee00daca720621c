package store

import (
	"context"
	"errors"
	"fmt"

	"FitCoachAI/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("record not found")

// ConversationStore persists conversation transcripts.
type ConversationStore interface {
	Create(ctx context.Context, name string, messages []models.Message) (*models.Conversation, error)
	Get(ctx context.Context, id uint) (*models.Conversation, error)
	List(ctx context.Context) ([]models.Conversation, error)
	// ReplaceMessages overwrites the whole transcript of conversation id.
	ReplaceMessages(ctx context.Context, id uint, messages []models.Message) error
	Delete(ctx context.Context, id uint) error
}

// Compile-time check
var _ ConversationStore = (*GormStore)(nil)

// GormStore is the gorm backed ConversationStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, name string, messages []models.Message) (*models.Conversation, error) {
	conv := models.Conversation{
		Name:     name,
		Messages: models.Transcript(nonNil(messages)),
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &conv, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch conversation %d: %w", id, err)
	}
	return &conv, nil
}

// List returns every conversation ordered by id.
func (s *GormStore) List(ctx context.Context) ([]models.Conversation, error) {
	convs := make([]models.Conversation, 0)
	if err := s.db.WithContext(ctx).Order("id asc").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (s *GormStore) ReplaceMessages(ctx context.Context, id uint, messages []models.Message) error {
	res := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("messages", models.Transcript(nonNil(messages)))
	if res.Error != nil {
		return fmt.Errorf("update conversation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Conversation{})
	if res.Error != nil {
		return fmt.Errorf("delete conversation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
