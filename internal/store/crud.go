package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/pkg/xjson"
	"github.com/inkhub/inkhub/internal/query"
)

// ErrEmptyDraft rejects publishing a document whose draft has no content.
var ErrEmptyDraft = fmt.Errorf("store: cannot publish an empty draft")

// CreateInput carries the fields of a new document.
type CreateInput struct {
	Type      string
	DraftData map[string]any
	CreatedBy string
}

// Create inserts a new draft document owned by the scope's primary
// organization.
func (s *Store) Create(ctx context.Context, scope Scope, input CreateInput) (*Document, error) {
	doc := &Document{
		ID:             uuid.NewString(),
		OrganizationID: scope.Primary(),
		Type:           input.Type,
		Status:         StatusDraft,
		DraftData:      input.DraftData,
		CreatedBy:      input.CreatedBy,
		UpdatedBy:      input.CreatedBy,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}

	draftRaw, err := encodePayload(doc.DraftData)
	if err != nil {
		return nil, err
	}

	err = s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		stmt, args := s.builder().
			Insert(documentsTable).
			Columns(documentColumns...).
			Values(
				doc.ID, doc.OrganizationID, doc.Type, string(doc.Status),
				draftRaw, nil, nil,
				nullable(doc.CreatedBy), nullable(doc.UpdatedBy),
				formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), nil,
			).
			Query()

		return tx.Exec(ctx, stmt, args, nil)
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Get fetches one document by ID within the scope. A missing document
// returns (nil, nil), not an error.
func (s *Store) Get(ctx context.Context, scope Scope, docType, id string) (*Document, error) {
	var doc *Document

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		var err error
		doc, err = s.getTx(ctx, tx, s.scoped(scope), docType, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *Store) getTx(ctx context.Context, tx dialect.Tx, scope Scope, docType, id string) (*Document, error) {
	preds := []*entsql.Predicate{entsql.EQ("id", id)}
	if docType != "" {
		preds = append(preds, entsql.EQ("type", docType))
	}

	if p := scopePredicate(scope); p != nil {
		preds = append(preds, p)
	}

	stmt, args := s.builder().
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.And(preds...)).
		Query()

	rows := &entsql.Rows{}
	if err := tx.Query(ctx, stmt, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	return scanDocument(rows)
}

// UpdateInput carries a draft mutation. Status is untouched; publishing is
// its own operation.
type UpdateInput struct {
	DraftData map[string]any
	UpdatedBy string
}

// Update overwrites the draft payload. Returns (nil, nil) when the document
// is not visible in the scope.
func (s *Store) Update(ctx context.Context, scope Scope, docType, id string, input UpdateInput) (*Document, error) {
	var doc *Document

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		scope := s.scoped(scope)

		existing, err := s.getTx(ctx, tx, scope, docType, id)
		if err != nil || existing == nil {
			return err
		}

		draftRaw, err := encodePayload(input.DraftData)
		if err != nil {
			return err
		}

		updatedAt := now()

		stmt, args := s.builder().
			Update(documentsTable).
			Set("draft_data", draftRaw).
			Set("updated_by", nullable(input.UpdatedBy)).
			Set("updated_at", formatTime(updatedAt)).
			Where(entsql.EQ("id", id)).
			Query()

		if err := tx.Exec(ctx, stmt, args, nil); err != nil {
			return err
		}

		existing.DraftData = input.DraftData
		existing.UpdatedBy = input.UpdatedBy
		existing.UpdatedAt = updatedAt
		doc = existing

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Delete removes the document permanently. The boolean reports whether a
// row was removed.
func (s *Store) Delete(ctx context.Context, scope Scope, docType, id string) (bool, error) {
	var deleted bool

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		preds := []*entsql.Predicate{entsql.EQ("id", id)}
		if docType != "" {
			preds = append(preds, entsql.EQ("type", docType))
		}

		if p := scopePredicate(s.scoped(scope)); p != nil {
			preds = append(preds, p)
		}

		stmt, args := s.builder().
			Delete(documentsTable).
			Where(entsql.And(preds...)).
			Query()

		var res sql.Result
		if err := tx.Exec(ctx, stmt, args, &res); err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		deleted = n > 0

		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

// FindMany runs a compiled filter with pagination, ordering and optional
// reference resolution, returning documents plus the unpaginated total.
func (s *Store) FindMany(ctx context.Context, scope Scope, docType string, opts query.FindOptions) ([]*Document, int, error) {
	var (
		docs  []*Document
		total int
	)

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		scope := s.scoped(scope)
		persp := opts.Perspective()

		pred := s.findPredicate(ctx, scope, docType, opts)

		selector := s.builder().
			Select(documentColumns...).
			From(entsql.Table(documentsTable)).
			Where(pred).
			Limit(opts.EffectiveLimit()).
			Offset(opts.Offset)

		for _, order := range query.CompileSort(ctx, opts.Sort, query.DocumentColumns(), persp) {
			order(selector)
		}

		stmt, args := selector.Query()

		rows := &entsql.Rows{}
		if err := tx.Query(ctx, stmt, args, rows); err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				return err
			}

			docs = append(docs, doc)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		var err error
		total, err = s.countTx(ctx, tx, pred)
		if err != nil {
			return err
		}

		if depth := opts.ClampedDepth(); depth > 0 {
			return s.resolveReferences(ctx, tx, scope, docs, persp, depth)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Count applies the same compiled predicate as FindMany without pagination
// or ordering.
func (s *Store) Count(ctx context.Context, scope Scope, docType string, opts query.FindOptions) (int, error) {
	var total int

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		var err error
		total, err = s.countTx(ctx, tx, s.findPredicate(ctx, s.scoped(scope), docType, opts))

		return err
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *Store) findPredicate(ctx context.Context, scope Scope, docType string, opts query.FindOptions) *entsql.Predicate {
	preds := []*entsql.Predicate{
		query.Compile(ctx, opts.Where, query.DocumentColumns(), opts.Perspective()),
	}

	if docType != "" {
		preds = append(preds, entsql.EQ("type", docType))
	}

	if p := scopePredicate(scope); p != nil {
		preds = append(preds, p)
	}

	return entsql.And(preds...)
}

func (s *Store) countTx(ctx context.Context, tx dialect.Tx, pred *entsql.Predicate) (int, error) {
	stmt, args := s.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(documentsTable)).
		Where(pred).
		Query()

	rows := &entsql.Rows{}
	if err := tx.Query(ctx, stmt, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}

	var total int
	if err := rows.Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

// Publish copies the draft into the published triad in one atomic update.
// The content hash is deterministic over the draft payload. Returns
// (nil, nil) when the document is not visible in the scope.
func (s *Store) Publish(ctx context.Context, scope Scope, docType, id, actor string) (*Document, error) {
	var doc *Document

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		scope := s.scoped(scope)

		existing, err := s.getTx(ctx, tx, scope, docType, id)
		if err != nil || existing == nil {
			return err
		}

		if len(existing.DraftData) == 0 {
			return ErrEmptyDraft
		}

		hash, err := xjson.Hash(existing.DraftData)
		if err != nil {
			return err
		}

		draftRaw, err := encodePayload(existing.DraftData)
		if err != nil {
			return err
		}

		publishedAt := now()

		stmt, args := s.builder().
			Update(documentsTable).
			Set("published_data", draftRaw).
			Set("published_hash", hash).
			Set("published_at", formatTime(publishedAt)).
			Set("status", string(StatusPublished)).
			Set("updated_by", nullable(actor)).
			Set("updated_at", formatTime(publishedAt)).
			Where(entsql.EQ("id", id)).
			Query()

		if err := tx.Exec(ctx, stmt, args, nil); err != nil {
			return err
		}

		existing.PublishedData = existing.DraftData
		existing.PublishedHash = hash
		existing.PublishedAt = &publishedAt
		existing.Status = StatusPublished
		existing.UpdatedBy = actor
		existing.UpdatedAt = publishedAt
		doc = existing

		log.Debug(ctx, "store: document published",
			log.String("document_id", id),
			log.String("hash", hash),
		)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Unpublish clears the published triad and reverts the document to draft.
// It is idempotent: unpublishing an unpublished document is a no-op.
func (s *Store) Unpublish(ctx context.Context, scope Scope, docType, id, actor string) (*Document, error) {
	var doc *Document

	err := s.InTx(ctx, scope, func(ctx context.Context, tx dialect.Tx) error {
		scope := s.scoped(scope)

		existing, err := s.getTx(ctx, tx, scope, docType, id)
		if err != nil || existing == nil {
			return err
		}

		if !existing.IsPublished() && existing.Status == StatusDraft {
			doc = existing
			return nil
		}

		updatedAt := now()

		stmt, args := s.builder().
			Update(documentsTable).
			SetNull("published_data").
			SetNull("published_hash").
			SetNull("published_at").
			Set("status", string(StatusDraft)).
			Set("updated_by", nullable(actor)).
			Set("updated_at", formatTime(updatedAt)).
			Where(entsql.EQ("id", id)).
			Query()

		if err := tx.Exec(ctx, stmt, args, nil); err != nil {
			return err
		}

		existing.PublishedData = nil
		existing.PublishedHash = ""
		existing.PublishedAt = nil
		existing.Status = StatusDraft
		existing.UpdatedBy = actor
		existing.UpdatedAt = updatedAt
		doc = existing

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
