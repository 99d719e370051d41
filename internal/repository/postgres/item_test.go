package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mvtran/authd/pkg/errors"
	"github.com/mvtran/authd/internal/domain"
)

func newItemFixture(t *testing.T) (*ItemRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewItemRepository(mock)
	return repo, mock
}

func sampleItem() *domain.Item {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Item{
		ID:          "i-1",
		Name:        "widget",
		Description: "a widget",
		OwnerID:     "u-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func itemRow(i *domain.Item) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "description", "owner_id", "created_at", "updated_at"}).
		AddRow(i.ID, i.Name, i.Description, i.OwnerID, i.CreatedAt, i.UpdatedAt)
}

func TestItemRepository_CreateAndGet(t *testing.T) {
	repo, mock := newItemFixture(t)
	defer mock.Close()

	item := sampleItem()

	mock.ExpectExec("INSERT INTO items").
		WithArgs(item.ID, item.Name, item.Description, item.OwnerID, item.CreatedAt, item.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), item))

	mock.ExpectQuery("SELECT .+ FROM items WHERE id =").
		WithArgs(item.ID).
		WillReturnRows(itemRow(item))

	got, err := repo.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newItemFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM items WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_List_Filters(t *testing.T) {
	repo, mock := newItemFixture(t)
	defer mock.Close()

	item := sampleItem()

	mock.ExpectQuery("SELECT .+ FROM items WHERE name = .+ AND owner_id =").
		WithArgs(item.Name, item.OwnerID).
		WillReturnRows(itemRow(item))

	items, err := repo.List(context.Background(), domain.ItemFilter{Name: item.Name, OwnerID: item.OwnerID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_List_NoFilter(t *testing.T) {
	repo, mock := newItemFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM items ORDER BY created_at DESC").
		WillReturnRows(itemRow(sampleItem()))

	items, err := repo.List(context.Background(), domain.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_UpdateAndDelete_NotFound(t *testing.T) {
	repo, mock := newItemFixture(t)
	defer mock.Close()

	item := sampleItem()

	mock.ExpectExec("UPDATE items").
		WithArgs(item.Name, item.Description, pgxmock.AnyArg(), item.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), item)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	mock.ExpectExec("DELETE FROM items").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = repo.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
