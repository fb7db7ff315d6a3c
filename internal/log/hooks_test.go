package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkhub/inkhub/internal/contexts"
)

func TestContextFieldsHook(t *testing.T) {
	hook := HookFunc(contextFields)

	t.Run("with trace ID", func(t *testing.T) {
		ctx := contexts.WithTraceID(context.Background(), "ih-test-trace-id")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "ih-test-trace-id", fields[0].String)
	})

	t.Run("with operation name", func(t *testing.T) {
		ctx := contexts.WithOperationName(context.Background(), "documents.publish")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "operation_name", fields[0].Key)
		assert.Equal(t, "documents.publish", fields[0].String)
	})

	t.Run("with organization ID", func(t *testing.T) {
		ctx := contexts.WithOrganizationID(context.Background(), "org-1")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "organization_id", fields[0].Key)
		assert.Equal(t, "org-1", fields[0].String)
	})

	t.Run("with empty context", func(t *testing.T) {
		fields := hook.Apply(context.Background(), "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("with nil context", func(t *testing.T) {
		fields := hook.Apply(nil, "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("keeps caller fields first", func(t *testing.T) {
		ctx := contexts.WithTraceID(context.Background(), "ih-test-trace-id")
		fields := hook.Apply(ctx, "test message", String("collection", "pages"))
		assert.Len(t, fields, 2)
		assert.Equal(t, "collection", fields[0].Key)
		assert.Equal(t, "trace_id", fields[1].Key)
	})
}
