package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
)

func TestOperationRepo_ListByDebt(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	cols := []string{"id", "debt_id", "operation_date", "money_amount", "money_receiver", "description",
		"status", "status_acceptor", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM money_operations WHERE debt_id = $1 ORDER BY created_at, id`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("o1", "d1", now, "10.00", "a", "coffee", "UNCHANGED", nil, now).
			AddRow("o2", "d1", now, "5", "b", "", "CREATION_AWAITING", "a", now))

	ops, err := NewOperationRepo(db).ListByDebt(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.False(t, ops[0].Pending())
	assert.Nil(t, ops[0].StatusAcceptor)
	assert.True(t, ops[1].Pending())
	assert.Equal(t, "a", *ops[1].StatusAcceptor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_CountPending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM money_operations WHERE debt_id = $1 AND status = $2`)).
		WithArgs("d1", "CREATION_AWAITING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewOperationRepo(db).CountPending(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_ReassignReceiver(t *testing.T) {
	tests := []struct {
		name    string
		result  int64
		err     error
		wantErr bool
	}{
		{name: "rows moved", result: 2},
		{name: "nothing to move", result: 0},
		{name: "db error", err: errors.New("boom"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			e := mock.ExpectExec(regexp.QuoteMeta(`UPDATE money_operations SET money_receiver = $1 WHERE debt_id = $2 AND money_receiver = $3`)).
				WithArgs("v", "d1", "a")
			if tt.err != nil {
				e.WillReturnError(tt.err)
			} else {
				e.WillReturnResult(sqlmock.NewResult(0, tt.result))
			}

			n, err := NewOperationRepo(db).ReassignReceiver(context.Background(), "d1", "a", "v")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.result, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOperationRepo_ClearAcceptor(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE money_operations SET status_acceptor = NULL WHERE debt_id = $1 AND status_acceptor = $2`)).
		WithArgs("d1", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := NewOperationRepo(db).ClearAcceptor(context.Background(), "d1", "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepo_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	op := &entity.Operation{ID: "o1", Status: entity.OperationUnchanged}
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE money_operations SET status = $1, status_acceptor = $2 WHERE id = $3`)).
		WithArgs("UNCHANGED", nil, "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewOperationRepo(db).UpdateStatus(context.Background(), op))
	assert.NoError(t, mock.ExpectationsWereMet())
}
