package contexts

import (
	"context"
)

// WithUser stores the acting user in the context.
func WithUser(ctx context.Context, user *User) context.Context {
	container := getContainer(ctx)
	container.mu.Lock()
	container.User = user
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// GetUser retrieves the acting user from the context.
func GetUser(ctx context.Context) (*User, bool) {
	container := getContainer(ctx)
	container.mu.RLock()
	defer container.mu.RUnlock()

	return container.User, container.User != nil
}

// WithOrganizationID stores the acting organization ID in the context.
func WithOrganizationID(ctx context.Context, orgID string) context.Context {
	container := getContainer(ctx)
	container.mu.Lock()
	container.OrganizationID = &orgID
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// GetOrganizationID retrieves the acting organization ID from the context.
func GetOrganizationID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	container.mu.RLock()
	defer container.mu.RUnlock()

	if container.OrganizationID != nil {
		return *container.OrganizationID, true
	}

	return "", false
}

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	container := getContainer(ctx)
	container.mu.Lock()
	container.TraceID = &traceID
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	container.mu.RLock()
	defer container.mu.RUnlock()

	if container.TraceID != nil {
		return *container.TraceID, true
	}

	return "", false
}

// WithOperationName stores the operation name in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	container := getContainer(ctx)
	container.mu.Lock()
	container.OperationName = &name
	container.mu.Unlock()

	return withContainer(ctx, container)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	container.mu.RLock()
	defer container.mu.RUnlock()

	if container.OperationName != nil {
		return *container.OperationName, true
	}

	return "", false
}
