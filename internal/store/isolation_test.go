package store

import (
	"context"
	"fmt"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDriver captures every statement so tests can assert on the
// isolation context a transaction establishes.
type recordingDriver struct {
	name     string
	stmts    []string
	commits  int
	rollback int
}

func (d *recordingDriver) Exec(_ context.Context, query string, _, _ any) error {
	d.stmts = append(d.stmts, query)
	return nil
}

func (d *recordingDriver) Query(_ context.Context, query string, _, _ any) error {
	d.stmts = append(d.stmts, query)
	return nil
}

func (d *recordingDriver) Tx(context.Context) (dialect.Tx, error) {
	return &recordingTx{drv: d}, nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) Dialect() string { return d.name }

type recordingTx struct {
	drv *recordingDriver
}

func (t *recordingTx) Exec(ctx context.Context, query string, args, v any) error {
	return t.drv.Exec(ctx, query, args, v)
}

func (t *recordingTx) Query(ctx context.Context, query string, args, v any) error {
	return t.drv.Query(ctx, query, args, v)
}

func (t *recordingTx) Commit() error {
	t.drv.commits++
	return nil
}

func (t *recordingTx) Rollback() error {
	t.drv.rollback++
	return nil
}

func TestInTxIsolationStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("postgres sets transaction local context before the work", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)

		orgID := uuid.NewString()
		actorID := uuid.NewString()

		err := s.InTx(ctx, Scope{OrganizationIDs: []string{orgID}, ActorID: actorID, ActorRole: "editor"},
			func(ctx context.Context, tx dialect.Tx) error {
				return tx.Exec(ctx, "SELECT 1", []any{}, nil)
			})
		require.NoError(t, err)

		require.Len(t, drv.stmts, 4)
		assert.Equal(t, fmt.Sprintf(`SET LOCAL inkhub.organization_id = '%s'`, orgID), drv.stmts[0])
		assert.Equal(t, fmt.Sprintf(`SET LOCAL inkhub.user_id = '%s'`, actorID), drv.stmts[1])
		assert.Equal(t, `SET LOCAL inkhub.user_role = 'editor'`, drv.stmts[2])
		assert.Equal(t, "SELECT 1", drv.stmts[3])
		assert.Equal(t, 1, drv.commits)
	})

	t.Run("bypass sets the bypass variable instead of an organization", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv).Bypass()

		err := s.InTx(ctx, Scope{}, func(ctx context.Context, tx dialect.Tx) error { return nil })
		require.NoError(t, err)

		require.NotEmpty(t, drv.stmts)
		assert.Equal(t, `SET LOCAL inkhub.bypass = 'on'`, drv.stmts[0])
		assert.NotContains(t, drv.stmts, "inkhub.organization_id")
	})

	t.Run("sqlite relies on scope predicates alone", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.SQLite}
		s := New(drv)

		err := s.InTx(ctx, Scope{OrganizationIDs: []string{uuid.NewString()}},
			func(ctx context.Context, tx dialect.Tx) error { return nil })
		require.NoError(t, err)
		assert.Empty(t, drv.stmts)
	})

	t.Run("malformed identifiers are rejected before any statement", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)

		err := s.InTx(ctx, Scope{OrganizationIDs: []string{"acme'; DROP TABLE documents; --"}},
			func(ctx context.Context, tx dialect.Tx) error { return nil })

		var isoErr *IsolationError
		require.ErrorAs(t, err, &isoErr)
		assert.Empty(t, drv.stmts)
		assert.Zero(t, drv.commits)
	})

	t.Run("empty scope without bypass is rejected", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)

		err := s.InTx(ctx, Scope{}, func(ctx context.Context, tx dialect.Tx) error { return nil })

		var isoErr *IsolationError
		assert.ErrorAs(t, err, &isoErr)
	})

	t.Run("error from fn rolls the transaction back", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)

		wantErr := fmt.Errorf("boom")
		err := s.InTx(ctx, Scope{OrganizationIDs: []string{uuid.NewString()}},
			func(ctx context.Context, tx dialect.Tx) error { return wantErr })

		assert.ErrorIs(t, err, wantErr)
		assert.Zero(t, drv.commits)
		assert.Equal(t, 1, drv.rollback)
	})

	t.Run("panic from fn rolls back and rethrows", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)

		assert.Panics(t, func() {
			_ = s.InTx(ctx, Scope{OrganizationIDs: []string{uuid.NewString()}},
				func(ctx context.Context, tx dialect.Tx) error { panic("boom") })
		})
		assert.Zero(t, drv.commits)
		assert.Equal(t, 1, drv.rollback)
	})

	t.Run("nested calls join the bound transaction", func(t *testing.T) {
		drv := &recordingDriver{name: dialect.Postgres}
		s := New(drv)
		scope := Scope{OrganizationIDs: []string{uuid.NewString()}}

		err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
			return s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error { return nil })
		})
		require.NoError(t, err)

		// One transaction: a single commit, context set once.
		assert.Equal(t, 1, drv.commits)
	})
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier(uuid.NewString()))
	assert.NoError(t, ValidateIdentifier("acme-eu_01"))
	assert.Error(t, ValidateIdentifier(""))
	assert.Error(t, ValidateIdentifier("has space"))
	assert.Error(t, ValidateIdentifier("quote'inject"))

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}

	assert.Error(t, ValidateIdentifier(string(long)))
}
