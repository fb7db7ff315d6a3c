package store

import (
	"context"

	"entgo.io/ent/dialect"

	"github.com/inkhub/inkhub/internal/log"
)

// Bootstrap creates the tables and indexes if they do not exist. Schema
// evolution beyond this bootstrap belongs to the external migration tooling.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range bootstrapStatements(s.drv.Dialect()) {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}

	log.Debug(ctx, "store: bootstrap schema ready", log.String("dialect", s.drv.Dialect()))

	return nil
}

func bootstrapStatements(dialectName string) []string {
	payload := "TEXT"
	if dialectName == dialect.Postgres {
		payload = "JSONB"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			parent_id TEXT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_organizations_parent ON organizations (parent_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NULL,
			draft_data ` + payload + ` NOT NULL,
			published_data ` + payload + ` NULL,
			published_hash TEXT NULL,
			created_by TEXT NULL,
			updated_by TEXT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			published_at TEXT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_org_type ON documents (organization_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type_status ON documents (type, status)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents (updated_at)`,
	}
}
