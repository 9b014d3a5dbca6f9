package entity

import (
	"database/sql/driver"
	"fmt"
)

type DebtStatus string

const (
	DebtCreationAwaiting DebtStatus = "CREATION_AWAITING"
	DebtUnchanged        DebtStatus = "UNCHANGED"
	DebtChangeAwaiting   DebtStatus = "CHANGE_AWAITING"
	DebtUserDeleted      DebtStatus = "USER_DELETED"
	DebtConnectUser      DebtStatus = "CONNECT_USER"
)

func ParseDebtStatus(s string) (DebtStatus, error) {
	switch v := DebtStatus(s); v {
	case DebtCreationAwaiting, DebtUnchanged, DebtChangeAwaiting, DebtUserDeleted, DebtConnectUser:
		return v, nil
	}
	return "", fmt.Errorf("unknown debt status %q", s)
}

func (s DebtStatus) Value() (driver.Value, error) {
	if _, err := ParseDebtStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

func (s *DebtStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	*s, err = ParseDebtStatus(raw)
	return err
}

type DebtType string

const (
	DebtSingleUser    DebtType = "SINGLE_USER"
	DebtMultipleUsers DebtType = "MULTIPLE_USERS"
)

func ParseDebtType(s string) (DebtType, error) {
	switch v := DebtType(s); v {
	case DebtSingleUser, DebtMultipleUsers:
		return v, nil
	}
	return "", fmt.Errorf("unknown debt type %q", s)
}

func (t DebtType) Value() (driver.Value, error) {
	if _, err := ParseDebtType(string(t)); err != nil {
		return nil, err
	}
	return string(t), nil
}

func (t *DebtType) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	*t, err = ParseDebtType(raw)
	return err
}

type OperationStatus string

const (
	OperationCreationAwaiting OperationStatus = "CREATION_AWAITING"
	OperationUnchanged        OperationStatus = "UNCHANGED"
)

func ParseOperationStatus(s string) (OperationStatus, error) {
	switch v := OperationStatus(s); v {
	case OperationCreationAwaiting, OperationUnchanged:
		return v, nil
	}
	return "", fmt.Errorf("unknown operation status %q", s)
}

func (s OperationStatus) Value() (driver.Value, error) {
	if _, err := ParseOperationStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

func (s *OperationStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	*s, err = ParseOperationStatus(raw)
	return err
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into a status", src)
	}
}
