package biz

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"github.com/samber/lo"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/query"
	"github.com/inkhub/inkhub/internal/schema"
	"github.com/inkhub/inkhub/internal/store"
	"github.com/inkhub/inkhub/internal/validate"
)

// DocumentService is the per-collection facade combining permission checks,
// validation, adapter dispatch and record shaping. It is the only entry
// point request-layer code talks to.
type DocumentService struct {
	store    *store.Store
	bypass   *store.Store
	orgs     *OrganizationService
	registry *schema.Registry
}

func NewDocumentService(s *store.Store, orgs *OrganizationService, registry *schema.Registry) *DocumentService {
	return &DocumentService{
		store:    s,
		bypass:   s.Bypass(),
		orgs:     orgs,
		registry: registry,
	}
}

// WriteInput carries a create or update. When Publish is set the write is
// additionally gated on validity: an invalid payload rejects the whole
// write, draft included.
type WriteInput struct {
	Data    map[string]any
	Publish bool
}

// WriteResult pairs the shaped record with the validation outcome, so
// callers can distinguish "saved with warnings" from "publish blocked".
type WriteResult struct {
	Record     map[string]any
	Validation validate.Result
}

func (s *DocumentService) collection(slug string) (schema.Collection, error) {
	col, ok := s.registry.Get(slug)
	if !ok {
		return schema.Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, slug)
	}

	return col, nil
}

// adapter picks the isolation-enforcing or bypass store instance based on
// the access context.
func (s *DocumentService) adapter(lctx LocalAPIContext) *store.Store {
	if lctx.OverrideAccess {
		return s.bypass
	}

	return s.store
}

// scope resolves the organization scope of one call. Without an explicit
// override the acting organization expands to itself plus its direct
// children, so parent queries union child documents and single-row
// operations retry into children.
func (s *DocumentService) scope(ctx context.Context, lctx LocalAPIContext, op string) (store.Scope, error) {
	if lctx.OverrideAccess {
		if err := checkOverride(ctx, op); err != nil {
			return store.Scope{}, err
		}

		// Reads see every tenant; writes still land in the acting
		// organization when one is named.
		scope := store.Scope{
			Bypass:          true,
			ActorID:         lctx.actorID(),
			OrganizationIDs: lctx.OrganizationIDs,
		}

		if len(scope.OrganizationIDs) == 0 && lctx.OrganizationID != "" {
			scope.OrganizationIDs = []string{lctx.OrganizationID}
		}

		return scope, nil
	}

	scope := store.Scope{
		ActorID:   lctx.actorID(),
		ActorRole: string(lctx.role()),
	}

	if len(lctx.OrganizationIDs) > 0 {
		scope.OrganizationIDs = lctx.OrganizationIDs
		return scope, nil
	}

	ids, err := s.orgs.Expand(ctx, lctx.OrganizationID)
	if err != nil {
		return store.Scope{}, err
	}

	scope.OrganizationIDs = ids

	return scope, nil
}

// narrowScope restricts the resolved scope to the organizations named in the
// query options. Options arrive from query-layer clients, so only
// organizations the caller already sees (the acting organization and its
// direct children) may be named; naming any other tenant is rejected.
func narrowScope(scope store.Scope, requested []string, op string) (store.Scope, error) {
	if len(requested) == 0 || scope.Bypass {
		return scope, nil
	}

	if outside := lo.Without(requested, scope.OrganizationIDs...); len(outside) > 0 {
		return store.Scope{}, &PermissionError{
			Operation: op,
			Reason:    fmt.Sprintf("organization %s is outside the caller's scope", strings.Join(outside, ", ")),
		}
	}

	scope.OrganizationIDs = requested

	return scope, nil
}

// Find runs a filtered, sorted, paginated query and returns shaped records
// with derived pagination fields.
func (s *DocumentService) Find(ctx context.Context, lctx LocalAPIContext, collection string, opts query.FindOptions) (query.FindResult, error) {
	const op = "documents.find"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkRead(op); err != nil {
		return query.FindResult{}, err
	}

	if _, err := s.collection(collection); err != nil {
		return query.FindResult{}, err
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return query.FindResult{}, err
	}

	scope, err = narrowScope(scope, opts.OrganizationIDs, op)
	if err != nil {
		return query.FindResult{}, err
	}

	docs, total, err := s.adapter(lctx).FindMany(ctx, scope, collection, opts)
	if err != nil {
		return query.FindResult{}, err
	}

	records := store.ShapeRecords(ctx, docs, opts.Perspective())

	return query.NewFindResult(records, total, opts.EffectiveLimit(), opts.Offset), nil
}

// FindByID fetches one record, honoring perspective and reference depth.
func (s *DocumentService) FindByID(ctx context.Context, lctx LocalAPIContext, collection, id string, opts query.FindOptions) (map[string]any, error) {
	opts.Where = query.Where{"id": map[string]any{"equals": id}}
	opts.Limit = 1
	opts.Offset = 0

	result, err := s.Find(ctx, lctx, collection, opts)
	if err != nil {
		return nil, err
	}

	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	return result.Docs[0], nil
}

// Count applies the same compiled predicate as Find without pagination.
func (s *DocumentService) Count(ctx context.Context, lctx LocalAPIContext, collection string, opts query.FindOptions) (int, error) {
	const op = "documents.count"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkRead(op); err != nil {
		return 0, err
	}

	if _, err := s.collection(collection); err != nil {
		return 0, err
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return 0, err
	}

	scope, err = narrowScope(scope, opts.OrganizationIDs, op)
	if err != nil {
		return 0, err
	}

	return s.adapter(lctx).Count(ctx, scope, collection, opts)
}

// Create validates, normalizes and persists a new draft. With input.Publish
// the document is additionally published in the same transaction, gated on
// validity.
func (s *DocumentService) Create(ctx context.Context, lctx LocalAPIContext, collection string, input WriteInput) (WriteResult, error) {
	const op = "documents.create"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkWrite(op); err != nil {
		return WriteResult{}, err
	}

	col, err := s.collection(collection)
	if err != nil {
		return WriteResult{}, err
	}

	result := validate.Document(col.Fields, input.Data)
	if input.Publish && !result.IsValid {
		return WriteResult{Validation: result}, NewValidationError(collection, result)
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return WriteResult{}, err
	}

	adapter := s.adapter(lctx)

	var doc *store.Document

	err = adapter.InTx(ctx, scope, func(ctx context.Context, _ dialect.Tx) error {
		var err error

		doc, err = adapter.Create(ctx, scope, store.CreateInput{
			Type:      collection,
			DraftData: result.NormalizedData,
			CreatedBy: lctx.actorID(),
		})
		if err != nil {
			return err
		}

		if input.Publish {
			doc, err = adapter.Publish(ctx, scope, collection, doc.ID, lctx.actorID())
		}

		return err
	})
	if err != nil {
		return WriteResult{Validation: result}, err
	}

	return WriteResult{
		Record:     store.ShapeRecord(ctx, doc, writePerspective(input)),
		Validation: result,
	}, nil
}

// Update validates, normalizes and overwrites the draft of an existing
// document, optionally publishing the new draft in the same transaction.
func (s *DocumentService) Update(ctx context.Context, lctx LocalAPIContext, collection, id string, input WriteInput) (WriteResult, error) {
	const op = "documents.update"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkWrite(op); err != nil {
		return WriteResult{}, err
	}

	col, err := s.collection(collection)
	if err != nil {
		return WriteResult{}, err
	}

	result := validate.Document(col.Fields, input.Data)
	if input.Publish && !result.IsValid {
		return WriteResult{Validation: result}, NewValidationError(collection, result)
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return WriteResult{}, err
	}

	adapter := s.adapter(lctx)

	var doc *store.Document

	err = adapter.InTx(ctx, scope, func(ctx context.Context, _ dialect.Tx) error {
		var err error

		doc, err = adapter.Update(ctx, scope, collection, id, store.UpdateInput{
			DraftData: result.NormalizedData,
			UpdatedBy: lctx.actorID(),
		})
		if err != nil {
			return err
		}

		if doc == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}

		if input.Publish {
			doc, err = adapter.Publish(ctx, scope, collection, id, lctx.actorID())
		}

		return err
	})
	if err != nil {
		return WriteResult{Validation: result}, err
	}

	return WriteResult{
		Record:     store.ShapeRecord(ctx, doc, writePerspective(input)),
		Validation: result,
	}, nil
}

// Delete removes a document permanently.
func (s *DocumentService) Delete(ctx context.Context, lctx LocalAPIContext, collection, id string) error {
	const op = "documents.delete"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkWrite(op); err != nil {
		return err
	}

	if _, err := s.collection(collection); err != nil {
		return err
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return err
	}

	deleted, err := s.adapter(lctx).Delete(ctx, scope, collection, id)
	if err != nil {
		return err
	}

	if !deleted {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	return nil
}

// Publish validates the current draft and, when valid, copies it into the
// published triad. Invalid drafts block the publish with an error naming
// every invalid field.
func (s *DocumentService) Publish(ctx context.Context, lctx LocalAPIContext, collection, id string) (map[string]any, error) {
	const op = "documents.publish"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkWrite(op); err != nil {
		return nil, err
	}

	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return nil, err
	}

	adapter := s.adapter(lctx)

	var doc *store.Document

	err = adapter.InTx(ctx, scope, func(ctx context.Context, _ dialect.Tx) error {
		existing, err := adapter.Get(ctx, scope, collection, id)
		if err != nil {
			return err
		}

		if existing == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}

		result := validate.Document(col.Fields, existing.DraftData)
		if !result.IsValid {
			return NewValidationError(collection, result)
		}

		doc, err = adapter.Publish(ctx, scope, collection, id, lctx.actorID())

		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "documents: published",
		log.String("collection", collection),
		log.String("document_id", id),
		log.String("hash", doc.PublishedHash),
	)

	return store.ShapeRecord(ctx, doc, query.PerspectivePublished), nil
}

// Unpublish reverts a document to draft. It has no validation gate and is
// idempotent.
func (s *DocumentService) Unpublish(ctx context.Context, lctx LocalAPIContext, collection, id string) (map[string]any, error) {
	const op = "documents.unpublish"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkWrite(op); err != nil {
		return nil, err
	}

	if _, err := s.collection(collection); err != nil {
		return nil, err
	}

	scope, err := s.scope(ctx, lctx, op)
	if err != nil {
		return nil, err
	}

	doc, err := s.adapter(lctx).Unpublish(ctx, scope, collection, id, lctx.actorID())
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	return store.ShapeRecord(ctx, doc, query.PerspectiveDraft), nil
}

func writePerspective(input WriteInput) query.Perspective {
	if input.Publish {
		return query.PerspectivePublished
	}

	return query.PerspectiveDraft
}
