package profile

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func expectEnsure(mock pgxmock.PgxPoolIface, userID string, inserted int64, credits int, tier string, createdAt time.Time) {
	mock.ExpectExec(`INSERT INTO profiles \(user_id\) VALUES \(\$1\) ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("INSERT", inserted))
	mock.ExpectQuery(`SELECT user_id, credits, tier, created_at FROM profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "credits", "tier", "created_at"}).
			AddRow(userID, credits, tier, createdAt))
}

func TestEnsureProfile_CreatesDefaults(t *testing.T) {
	mock := newMock(t)
	s := NewService(mock)
	created := time.Now()

	expectEnsure(mock, "user_new", 1, 3, "free", created)

	p, err := s.EnsureProfile(context.Background(), "user_new")
	require.NoError(t, err)
	require.Equal(t, "user_new", p.UserID)
	require.Equal(t, 3, p.Credits)
	require.Equal(t, "free", p.Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A second bootstrap is a no-op insert and returns the stored row unchanged.
func TestEnsureProfile_Idempotent(t *testing.T) {
	mock := newMock(t)
	s := NewService(mock)
	created := time.Now().Add(-24 * time.Hour)

	expectEnsure(mock, "user_old", 1, 3, "free", created)
	expectEnsure(mock, "user_old", 0, 3, "free", created)

	first, err := s.EnsureProfile(context.Background(), "user_old")
	require.NoError(t, err)
	second, err := s.EnsureProfile(context.Background(), "user_old")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NotFound(t *testing.T) {
	mock := newMock(t)
	s := NewService(mock)

	mock.ExpectQuery(`SELECT user_id, credits, tier, created_at FROM profiles WHERE user_id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
