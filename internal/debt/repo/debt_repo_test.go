package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var debtRowColumns = []string{"id", "first_user_id", "second_user_id", "type", "status", "status_acceptor",
	"summary", "money_receiver", "created_at", "updated_at"}

func TestDebtRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM debts WHERE id = $1`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(debtRowColumns).
			AddRow("d1", "a", "b", "MULTIPLE_USERS", "CHANGE_AWAITING", "b", "150.50", "a", now, now))

	d, err := NewDebtRepo(db).GetByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, entity.DebtMultipleUsers, d.Type)
	assert.Equal(t, entity.DebtChangeAwaiting, d.Status)
	assert.Equal(t, "b", *d.StatusAcceptor)
	assert.True(t, d.Summary.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, "a", *d.MoneyReceiver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebtRepo_GetByIDRejectsUnknownStatus(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM debts WHERE id = $1`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(debtRowColumns).
			AddRow("d1", "a", "b", "MULTIPLE_USERS", "ARCHIVED", nil, "0", nil, now, now))

	_, err := NewDebtRepo(db).GetByID(context.Background(), "d1")
	assert.Error(t, err)
}

func TestDebtRepo_ExistsBetween(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		err     error
		want    bool
		wantErr bool
	}{
		{name: "exists", count: 1, want: true},
		{name: "none", count: 0, want: false},
		{name: "db error", err: errors.New("boom"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			q := mock.ExpectQuery(regexp.QuoteMeta(
				`WHERE (first_user_id = $1 AND second_user_id = $2) OR (first_user_id = $3 AND second_user_id = $4)`)).
				WithArgs("a", "b", "b", "a")
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))
			}

			got, err := NewDebtRepo(db).ExistsBetween(context.Background(), "a", "b")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDebtRepo_Update(t *testing.T) {
	db, mock := newMock(t)
	d := &entity.Debt{
		ID:           "d1",
		FirstUserID:  "a",
		SecondUserID: "v",
		Type:         entity.DebtSingleUser,
		Status:       entity.DebtUnchanged,
		Summary:      decimal.NewFromInt(40),
	}
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE debts SET first_user_id = $1`)).
		WithArgs("a", "v", "SINGLE_USER", "UNCHANGED", nil, "40", nil, sqlmock.AnyArg(), "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewDebtRepo(db).Update(context.Background(), d))
	assert.False(t, d.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebtRepo_CreateRejectsInvalidStatus(t *testing.T) {
	db, _ := newMock(t)
	d := &entity.Debt{ID: "d1", Type: entity.DebtSingleUser, Status: entity.DebtStatus("bogus")}
	assert.Error(t, NewDebtRepo(db).Create(context.Background(), d))
}
