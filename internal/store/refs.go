package store

import (
	"context"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/query"
)

// reservedRefKeys never hold references: they are metadata hoisted into the
// record shape, so a UUID under one of them is an identifier, not a link.
var reservedRefKeys = map[string]bool{
	"id":             true,
	"organizationId": true,
	"type":           true,
	"status":         true,
	"createdBy":      true,
	"updatedBy":      true,
	"createdAt":      true,
	"updatedAt":      true,
	"publishedAt":    true,
	"publishedHash":  true,
}

// refResolver expands bare document-ID strings inside payloads into the
// referenced documents' records. Lookups are cached per find call; a nil
// cache entry records a miss so absent references are probed once.
type refResolver struct {
	store *Store
	tx    dialect.Tx
	scope Scope
	persp query.Perspective
	cache map[string]*Document
}

// resolveReferences walks each document's payload up to depth levels,
// replacing reference strings in place. Visited IDs track the expansion
// ancestry so reference cycles terminate; siblings referencing the same
// document both expand.
func (s *Store) resolveReferences(ctx context.Context, tx dialect.Tx, scope Scope, docs []*Document, persp query.Perspective, depth int) error {
	r := &refResolver{
		store: s,
		tx:    tx,
		scope: scope,
		persp: persp,
		cache: map[string]*Document{},
	}

	for _, doc := range docs {
		visited := map[string]bool{doc.ID: true}

		if err := r.walkMap(ctx, doc.Data(persp), depth, visited); err != nil {
			return err
		}
	}

	return nil
}

func (r *refResolver) walkMap(ctx context.Context, m map[string]any, depth int, visited map[string]bool) error {
	if depth <= 0 || m == nil {
		return nil
	}

	for key, value := range m {
		resolved, err := r.walkValue(ctx, key, value, depth, visited)
		if err != nil {
			return err
		}

		m[key] = resolved
	}

	return nil
}

func (r *refResolver) walkValue(ctx context.Context, key string, value any, depth int, visited map[string]bool) (any, error) {
	switch v := value.(type) {
	case string:
		if reservedRefKeys[key] || uuid.Validate(v) != nil {
			return value, nil
		}

		return r.expand(ctx, v, depth, visited)
	case map[string]any:
		return v, r.walkMap(ctx, v, depth, visited)
	case []any:
		for i, elem := range v {
			resolved, err := r.walkValue(ctx, key, elem, depth, visited)
			if err != nil {
				return nil, err
			}

			v[i] = resolved
		}

		return v, nil
	default:
		return value, nil
	}
}

// expand swaps a reference ID for the referenced document's record. The ID
// string stays untouched when the target is missing, outside the scope,
// already visited, or has no payload for the perspective.
func (r *refResolver) expand(ctx context.Context, id string, depth int, visited map[string]bool) (any, error) {
	if visited[id] {
		return id, nil
	}

	ref, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if ref == nil || len(ref.Data(r.persp)) == 0 {
		return id, nil
	}

	visited[id] = true
	defer delete(visited, id)

	record := ShapeRecord(ctx, ref, r.persp)
	if err := r.walkMap(ctx, record, depth-1, visited); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *refResolver) lookup(ctx context.Context, id string) (*Document, error) {
	if ref, ok := r.cache[id]; ok {
		return ref, nil
	}

	ref, err := r.store.getTx(ctx, r.tx, r.scope, "", id)
	if err != nil {
		return nil, err
	}

	if ref == nil && log.DebugEnabled(ctx) {
		log.Debug(ctx, "store: unresolvable reference", log.String("reference_id", id))
	}

	r.cache[id] = ref

	return ref, nil
}
