package biz

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/store"
)

const (
	hierarchyCacheSize = 1024
	hierarchyCacheTTL  = time.Minute
)

// OrganizationService manages tenants and resolves the parent-plus-children
// scope a query runs under. Hierarchy lookups go through the bypass adapter:
// organization metadata is not tenant data.
type OrganizationService struct {
	store *store.Store
	cache *expirable.LRU[string, []string]
}

func NewOrganizationService(s *store.Store) *OrganizationService {
	return &OrganizationService{
		store: s.Bypass(),
		cache: expirable.NewLRU[string, []string](hierarchyCacheSize, nil, hierarchyCacheTTL),
	}
}

// Expand resolves the organization scope of orgID: the organization itself
// followed by its direct children. Results are cached briefly; writes to the
// hierarchy call Invalidate.
func (s *OrganizationService) Expand(ctx context.Context, orgID string) ([]string, error) {
	if ids, ok := s.cache.Get(orgID); ok {
		return ids, nil
	}

	children, err := s.store.ListChildOrganizations(ctx, store.Scope{Bypass: true}, orgID)
	if err != nil {
		return nil, err
	}

	ids := append([]string{orgID}, lo.Map(children, func(org *store.Organization, _ int) string {
		return org.ID
	})...)

	s.cache.Add(orgID, ids)

	if log.DebugEnabled(ctx) {
		log.Debug(ctx, "organizations: hierarchy expanded",
			log.String("organization_id", orgID),
			log.Int("children", len(children)),
		)
	}

	return ids, nil
}

// Invalidate drops the cached expansion of orgID and of its parent, whose
// child list just changed.
func (s *OrganizationService) Invalidate(orgIDs ...string) {
	for _, id := range orgIDs {
		if id != "" {
			s.cache.Remove(id)
		}
	}
}

// Create adds a tenant. Organization management is system-level: it
// requires override access backed by a system principal.
func (s *OrganizationService) Create(ctx context.Context, lctx LocalAPIContext, input store.CreateOrganizationInput) (*store.Organization, error) {
	const op = "organizations.create"

	ctx = lctx.annotate(ctx, op)

	if !lctx.OverrideAccess {
		return nil, &PermissionError{Operation: op, Reason: "organization management requires override access"}
	}

	if err := checkOverride(ctx, op); err != nil {
		return nil, err
	}

	org, err := s.store.CreateOrganization(ctx, store.Scope{Bypass: true, ActorID: lctx.actorID()}, input)
	if err != nil {
		return nil, err
	}

	s.Invalidate(org.ID, org.ParentID)

	return org, nil
}

// Get fetches a tenant by ID; (nil, nil) when absent.
func (s *OrganizationService) Get(ctx context.Context, lctx LocalAPIContext, id string) (*store.Organization, error) {
	const op = "organizations.get"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkRead(op); err != nil {
		return nil, err
	}

	return s.store.GetOrganization(ctx, store.Scope{Bypass: true}, id)
}

// GetBySlug fetches a tenant by slug; (nil, nil) when absent.
func (s *OrganizationService) GetBySlug(ctx context.Context, lctx LocalAPIContext, slug string) (*store.Organization, error) {
	const op = "organizations.get_by_slug"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkRead(op); err != nil {
		return nil, err
	}

	return s.store.GetOrganizationBySlug(ctx, store.Scope{Bypass: true}, slug)
}

// Children lists the direct children of an organization.
func (s *OrganizationService) Children(ctx context.Context, lctx LocalAPIContext, parentID string) ([]*store.Organization, error) {
	const op = "organizations.children"

	ctx = lctx.annotate(ctx, op)

	if err := lctx.checkRead(op); err != nil {
		return nil, err
	}

	return s.store.ListChildOrganizations(ctx, store.Scope{Bypass: true}, parentID)
}
