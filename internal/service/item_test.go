package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mvtran/authd/internal/domain"
	apperrors "github.com/mvtran/authd/pkg/errors"
)

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestItemCreate_Success(t *testing.T) {
	itemRepo := new(mockItemRepository)
	svc := NewItemService(itemRepo, newTestLogger())
	ctx := context.Background()

	itemRepo.On("Create", ctx, mock.AnythingOfType("*domain.Item")).Return(nil)

	item, err := svc.Create(ctx, "user-1", CreateItemInput{
		Name:        "widget",
		Description: "a widget",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "user-1", item.OwnerID)
	itemRepo.AssertExpectations(t)
}

func TestItemCreate_MissingName(t *testing.T) {
	svc := NewItemService(new(mockItemRepository), newTestLogger())

	_, err := svc.Create(context.Background(), "user-1", CreateItemInput{})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestItemList_FilterPassedThrough(t *testing.T) {
	itemRepo := new(mockItemRepository)
	svc := NewItemService(itemRepo, newTestLogger())
	ctx := context.Background()

	filter := domain.ItemFilter{Name: "widget", OwnerID: "user-1"}
	itemRepo.On("List", ctx, filter).Return([]domain.Item{{ID: "item-1"}}, nil)

	items, err := svc.List(ctx, filter)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	itemRepo.AssertExpectations(t)
}

func TestItemUpdate_Partial(t *testing.T) {
	itemRepo := new(mockItemRepository)
	svc := NewItemService(itemRepo, newTestLogger())
	ctx := context.Background()

	existing := &domain.Item{ID: "item-1", Name: "widget", Description: "old", OwnerID: "user-1"}
	itemRepo.On("GetByID", ctx, "item-1").Return(existing, nil)
	itemRepo.On("Update", ctx, mock.AnythingOfType("*domain.Item")).Return(nil)

	desc := "new description"
	item, err := svc.Update(ctx, "item-1", UpdateItemInput{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, "widget", item.Name)
	assert.Equal(t, "new description", item.Description)
	itemRepo.AssertExpectations(t)
}

func TestItemDelete_NotFound(t *testing.T) {
	itemRepo := new(mockItemRepository)
	svc := NewItemService(itemRepo, newTestLogger())
	ctx := context.Background()

	itemRepo.On("Delete", ctx, "missing").Return(apperrors.NotFound("item", "missing"))

	err := svc.Delete(ctx, "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
