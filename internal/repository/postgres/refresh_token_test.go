package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mvtran/authd/pkg/errors"
)

func newRefreshTokenFixture(t *testing.T) (*RefreshTokenRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository(mock)
	return repo, mock
}

const sampleHash = "9b74c9897bac770ffc029102a200c5de"

func TestRefreshTokenRepository_Create_Success(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("u-1", sampleHash, expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), "u-1", sampleHash, expiresAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Create_DuplicateHash(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	expiresAt := time.Now().UTC().Add(time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("u-1", sampleHash, expiresAt, pgxmock.AnyArg()).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), "u-1", sampleHash, expiresAt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_Success(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at"}).
		AddRow("rt-1", "u-1", sampleHash, now.Add(time.Hour), now, (*time.Time)(nil))

	mock.ExpectQuery("SELECT .+ FROM refresh_tokens WHERE token_hash =").
		WithArgs(sampleHash).
		WillReturnRows(rows)

	rt, err := repo.GetByHash(context.Background(), sampleHash)
	require.NoError(t, err)
	assert.Equal(t, "u-1", rt.UserID)
	assert.Nil(t, rt.RevokedAt)
	assert.True(t, rt.Active(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM refresh_tokens WHERE token_hash =").
		WithArgs("unknown-hash").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByHash(context.Background(), "unknown-hash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke_UnknownHashIsNoOp(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "never-issued").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Revoke(context.Background(), "never-issued")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeIfActive_WinsRace(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), sampleHash).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rotated, err := repo.RevokeIfActive(context.Background(), sampleHash)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeIfActive_AlreadyRevoked(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	// A concurrent refresh already flipped revoked_at; no row matches the
	// conditional update and this caller must lose.
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), sampleHash).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rotated, err := repo.RevokeIfActive(context.Background(), sampleHash)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeIfActive_StoreError(t *testing.T) {
	repo, mock := newRefreshTokenFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), sampleHash).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.RevokeIfActive(context.Background(), sampleHash)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrInvalidToken))
	assert.NoError(t, mock.ExpectationsWereMet())
}
