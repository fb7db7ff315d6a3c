package store

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const organizationsTable = "organizations"

var organizationColumns = []string{
	"id", "name", "slug", "parent_id", "created_at", "updated_at",
}

// Organization is one tenant. ParentID is empty for root organizations.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	ParentID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateOrganizationInput carries the fields of a new organization.
type CreateOrganizationInput struct {
	Name     string
	Slug     string
	ParentID string
}

// CreateOrganization inserts a tenant. Organization management is a
// system-level operation and runs under the caller's scope as-is.
func (s *Store) CreateOrganization(ctx context.Context, scope Scope, input CreateOrganizationInput) (*Organization, error) {
	org := &Organization{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Slug:      input.Slug,
		ParentID:  input.ParentID,
		CreatedAt: now(),
		UpdatedAt: now(),
	}

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		stmt, args := s.builder().
			Insert(organizationsTable).
			Columns(organizationColumns...).
			Values(
				org.ID, org.Name, org.Slug, nullable(org.ParentID),
				formatTime(org.CreatedAt), formatTime(org.UpdatedAt),
			).
			Query()

		return tx.Exec(ctx, stmt, args, nil)
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// GetOrganization fetches one tenant by ID. A missing tenant returns
// (nil, nil).
func (s *Store) GetOrganization(ctx context.Context, scope Scope, id string) (*Organization, error) {
	return s.oneOrganization(ctx, scope, entsql.EQ("id", id))
}

// GetOrganizationBySlug fetches one tenant by slug. A missing tenant
// returns (nil, nil).
func (s *Store) GetOrganizationBySlug(ctx context.Context, scope Scope, slug string) (*Organization, error) {
	return s.oneOrganization(ctx, scope, entsql.EQ("slug", slug))
}

func (s *Store) oneOrganization(ctx context.Context, scope Scope, pred *entsql.Predicate) (*Organization, error) {
	var org *Organization

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		stmt, args := s.builder().
			Select(organizationColumns...).
			From(entsql.Table(organizationsTable)).
			Where(pred).
			Query()

		rows := &entsql.Rows{}
		if err := tx.Query(ctx, stmt, args, rows); err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			return rows.Err()
		}

		var err error
		org, err = scanOrganization(rows)

		return err
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// ListChildOrganizations returns the direct children of parentID ordered by
// creation time.
func (s *Store) ListChildOrganizations(ctx context.Context, scope Scope, parentID string) ([]*Organization, error) {
	var orgs []*Organization

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		stmt, args := s.builder().
			Select(organizationColumns...).
			From(entsql.Table(organizationsTable)).
			Where(entsql.EQ("parent_id", parentID)).
			OrderBy(entsql.Asc("created_at")).
			Query()

		rows := &entsql.Rows{}
		if err := tx.Query(ctx, stmt, args, rows); err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			org, err := scanOrganization(rows)
			if err != nil {
				return err
			}

			orgs = append(orgs, org)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return orgs, nil
}

func scanOrganization(rows *entsql.Rows) (*Organization, error) {
	var (
		org       Organization
		parentID  sql.NullString
		createdAt string
		updatedAt string
	)

	err := rows.Scan(&org.ID, &org.Name, &org.Slug, &parentID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	org.ParentID = parentID.String

	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if org.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &org, nil
}
