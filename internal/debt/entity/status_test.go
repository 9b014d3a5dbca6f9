package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebtStatusScan(t *testing.T) {
	var s DebtStatus
	require.NoError(t, s.Scan("CHANGE_AWAITING"))
	assert.Equal(t, DebtChangeAwaiting, s)

	require.NoError(t, s.Scan([]byte("USER_DELETED")))
	assert.Equal(t, DebtUserDeleted, s)

	assert.Error(t, s.Scan("DELETED"))
	assert.Error(t, s.Scan(42))
}

func TestDebtTypeRoundTrip(t *testing.T) {
	v, err := DebtSingleUser.Value()
	require.NoError(t, err)
	var typ DebtType
	require.NoError(t, typ.Scan(v))
	assert.Equal(t, DebtSingleUser, typ)

	_, err = DebtType("BOTH").Value()
	assert.Error(t, err)
}

func TestOperationStatusParse(t *testing.T) {
	s, err := ParseOperationStatus("UNCHANGED")
	require.NoError(t, err)
	assert.Equal(t, OperationUnchanged, s)

	_, err = ParseOperationStatus("CHANGE_AWAITING")
	assert.Error(t, err)

	var scanned OperationStatus
	assert.Error(t, scanned.Scan(nil))
}
