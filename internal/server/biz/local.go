package biz

import (
	"context"

	"github.com/inkhub/inkhub/internal/authz"
	"github.com/inkhub/inkhub/internal/contexts"
)

// LocalAPIContext is the caller-constructed access context every facade
// operation takes first. Callers build it from their own auth result; the
// facade trusts its contents and enforces the permission policy on top.
type LocalAPIContext struct {
	// OrganizationID is the acting organization.
	OrganizationID string

	// User is the authenticated user, nil for unauthenticated callers.
	User *contexts.User

	// OverrideAccess short-circuits every permission check and routes to
	// the privilege-bypassing adapter. Reserved for system-level
	// operations; it must never be set from an end-user request path.
	OverrideAccess bool

	// OrganizationIDs, when set, replaces the implicit parent-plus-children
	// hierarchy expansion with an explicit organization scope.
	OrganizationIDs []string
}

func (l LocalAPIContext) actorID() string {
	if l.User == nil {
		return ""
	}

	return l.User.ID
}

func (l LocalAPIContext) role() authz.Role {
	if l.User == nil {
		return ""
	}

	return authz.Role(l.User.Role)
}

// checkRead enforces the read policy: override short-circuits, otherwise
// any authenticated user may read.
func (l LocalAPIContext) checkRead(op string) error {
	if l.OverrideAccess {
		return nil
	}

	if l.User == nil {
		return &PermissionError{Operation: op, Reason: "authentication required"}
	}

	return nil
}

// checkWrite enforces the write policy: override short-circuits, otherwise
// a non-viewer role is required.
func (l LocalAPIContext) checkWrite(op string) error {
	if l.OverrideAccess {
		return nil
	}

	if l.User == nil {
		return &PermissionError{Operation: op, Reason: "authentication required"}
	}

	if !l.role().CanWrite() {
		return &PermissionError{Operation: op, Reason: "role " + l.User.Role + " cannot write"}
	}

	return nil
}

// annotate stamps the request context with the operation and actor so the
// logging hook picks them up.
func (l LocalAPIContext) annotate(ctx context.Context, op string) context.Context {
	ctx = contexts.WithOperationName(ctx, op)

	if l.OrganizationID != "" {
		ctx = contexts.WithOrganizationID(ctx, l.OrganizationID)
	}

	if l.User != nil {
		ctx = contexts.WithUser(ctx, l.User)
	}

	return ctx
}

// checkOverride verifies that override access is held by a system or test
// principal, or runs inside an audited bypass scope opened via
// authz.WithBypassIsolation. End-user principals never reach the bypass
// adapter.
func checkOverride(ctx context.Context, op string) error {
	if authz.IsBypassActive(ctx) {
		return nil
	}

	p, ok := authz.GetPrincipal(ctx)
	if !ok {
		return &PermissionError{Operation: op, Reason: "override access requires a system principal"}
	}

	if p.IsUser() {
		return &PermissionError{Operation: op, Reason: "override access is not available to user principals"}
	}

	return nil
}
