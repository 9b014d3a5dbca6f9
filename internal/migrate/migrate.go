// Package migrate bootstraps the database schema.
package migrate

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	authrepo "github.com/ovaphlow/pitchfork/service-debts-go/internal/auth/repo"
	debtrepo "github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-debts-go/internal/user/repo"
)

// EnsureSchema creates every table and index that does not exist yet.
func EnsureSchema(ctx context.Context, db sqlx.ExtContext) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userrepo.NewUserRepo(db).EnsureTable},
		{"refresh_sessions", authrepo.NewRefreshRepo(db).EnsureTable},
		{"debts", debtrepo.NewDebtRepo(db).EnsureTable},
		{"money_operations", debtrepo.NewOperationRepo(db).EnsureTable},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	return nil
}
