package store

import (
	"context"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Store executes document and organization operations against the relational
// backend. Two instances exist per process: the isolation-enforcing one and
// the bypass one returned by Bypass(); both share the same driver.
type Store struct {
	drv    dialect.Driver
	bypass bool
}

func New(drv dialect.Driver) *Store {
	return &Store{drv: drv}
}

// Bypass returns the privilege-bypassing view of the store. Callers must
// hold a system principal; the façade enforces that before routing here.
func (s *Store) Bypass() *Store {
	return &Store{drv: s.drv, bypass: true}
}

// Dialect returns the backend dialect name.
func (s *Store) Dialect() string {
	return s.drv.Dialect()
}

// scoped forces bypass on scopes executed through the bypass instance.
func (s *Store) scoped(scope Scope) Scope {
	if s.bypass {
		scope.Bypass = true
	}

	return scope
}

// builder returns a dialect-bound SQL builder.
func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

type txCtxKey struct{}

// txFromContext returns the transaction bound to ctx, if any.
func txFromContext(ctx context.Context) dialect.Tx {
	tx, _ := ctx.Value(txCtxKey{}).(dialect.Tx)
	return tx
}

// newTxContext binds a transaction to the context so nested adapter calls
// join it instead of opening their own.
func newTxContext(ctx context.Context, tx dialect.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// InTx runs fn inside a transaction carrying the scope's isolation context.
// The isolation variables are transaction-local; commit or rollback clears
// them before the connection returns to the pool. A transaction already
// bound to ctx is joined, not nested.
func (s *Store) InTx(ctx context.Context, scope Scope, fn func(ctx context.Context, tx dialect.Tx) error) (err error) {
	scope = s.scoped(scope)

	if err := validateScope(scope); err != nil {
		return err
	}

	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx, tx)
	}

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return err
	}

	committed := false

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()

			panic(r)
		}

		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmts, err := isolationStatements(s.drv.Dialect(), scope)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}

	if err := fn(newTxContext(ctx, tx), tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	committed = true

	return nil
}

// scopePredicate narrows a statement to the scope's organizations. Bypass
// scopes see every tenant.
func scopePredicate(scope Scope) *entsql.Predicate {
	if scope.Bypass {
		return nil
	}

	ids := make([]any, len(scope.OrganizationIDs))
	for i, id := range scope.OrganizationIDs {
		ids[i] = id
	}

	return entsql.In("organization_id", ids...)
}
