package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvtran/authd/internal/domain"
	"github.com/mvtran/authd/internal/repository"
	apperrors "github.com/mvtran/authd/pkg/errors"
)

// ItemService implements the business logic for item management.
type ItemService struct {
	itemRepo repository.ItemRepository
	logger   *slog.Logger
}

// NewItemService creates a new item service.
func NewItemService(itemRepo repository.ItemRepository, logger *slog.Logger) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		logger:   logger,
	}
}

// CreateItemInput holds the parameters for creating an item.
type CreateItemInput struct {
	Name        string
	Description string
}

// UpdateItemInput holds the parameters for updating an item. Nil fields are
// left unchanged.
type UpdateItemInput struct {
	Name        *string
	Description *string
}

// Create adds a new item owned by the given user.
func (s *ItemService) Create(ctx context.Context, ownerID string, input CreateItemInput) (*domain.Item, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.InfoContext(ctx, "item created",
		slog.String("item_id", item.ID),
		slog.String("owner_id", ownerID),
	)

	return item, nil
}

// Get retrieves an item by ID.
func (s *ItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns items matching the filter.
func (s *ItemService) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	items, err := s.itemRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Update modifies an existing item.
func (s *ItemService) Update(ctx context.Context, id string, input UpdateItemInput) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.logger.InfoContext(ctx, "item updated",
		slog.String("item_id", item.ID),
	)

	return item, nil
}

// Delete removes an item by ID.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	s.logger.InfoContext(ctx, "item deleted",
		slog.String("item_id", id),
	)

	return nil
}
