package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFindResult(t *testing.T) {
	t.Run("first page", func(t *testing.T) {
		res := NewFindResult(make([]map[string]any, 10), 25, 10, 0)
		assert.Equal(t, 25, res.TotalDocs)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, 3, res.TotalPages)
		assert.True(t, res.HasNextPage)
		assert.False(t, res.HasPrevPage)
	})

	t.Run("middle page", func(t *testing.T) {
		res := NewFindResult(make([]map[string]any, 10), 25, 10, 10)
		assert.Equal(t, 2, res.Page)
		assert.True(t, res.HasNextPage)
		assert.True(t, res.HasPrevPage)
	})

	t.Run("last page", func(t *testing.T) {
		res := NewFindResult(make([]map[string]any, 5), 25, 10, 20)
		assert.Equal(t, 3, res.Page)
		assert.False(t, res.HasNextPage)
		assert.True(t, res.HasPrevPage)
	})

	t.Run("empty result still has one page", func(t *testing.T) {
		res := NewFindResult(nil, 0, 10, 0)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, 1, res.TotalPages)
		assert.False(t, res.HasNextPage)
		assert.False(t, res.HasPrevPage)
	})

	t.Run("zero limit falls back to default", func(t *testing.T) {
		res := NewFindResult(nil, 120, 0, 0)
		assert.Equal(t, 3, res.TotalPages)
	})
}

func TestFindOptions(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		assert.Equal(t, DefaultLimit, FindOptions{}.EffectiveLimit())
		assert.Equal(t, 5, FindOptions{Limit: 5}.EffectiveLimit())
	})

	t.Run("default perspective is draft", func(t *testing.T) {
		assert.Equal(t, PerspectiveDraft, FindOptions{}.Perspective())
		assert.Equal(t, PerspectivePublished, FindOptions{Persp: PerspectivePublished}.Perspective())
	})

	t.Run("depth clamps to the maximum", func(t *testing.T) {
		assert.Equal(t, 0, FindOptions{Depth: -3}.ClampedDepth())
		assert.Equal(t, 3, FindOptions{Depth: 3}.ClampedDepth())
		assert.Equal(t, MaxDepth, FindOptions{Depth: 99}.ClampedDepth())
	})
}

func TestPerspectivePayloadColumn(t *testing.T) {
	assert.Equal(t, "draft_data", PerspectiveDraft.PayloadColumn())
	assert.Equal(t, "published_data", PerspectivePublished.PayloadColumn())
	assert.Equal(t, "draft_data", Perspective("").PayloadColumn())
}

func TestAsFieldFilter(t *testing.T) {
	t.Run("typed filter passes through", func(t *testing.T) {
		in := FieldFilter{Equals: "home"}
		out, unknown, ok := asFieldFilter(in)
		require.True(t, ok)
		assert.Empty(t, unknown)
		assert.Equal(t, "home", out.Equals)
	})

	t.Run("map form decodes operators", func(t *testing.T) {
		out, unknown, ok := asFieldFilter(map[string]any{
			"equals": "home",
			"in":     []any{"a", "b"},
		})
		require.True(t, ok)
		assert.Empty(t, unknown)
		assert.Equal(t, "home", out.Equals)
		assert.Len(t, out.In, 2)
	})

	t.Run("unknown operators reported", func(t *testing.T) {
		out, unknown, ok := asFieldFilter(map[string]any{
			"equals":  "home",
			"matches": "h.*",
		})
		require.True(t, ok)
		assert.Equal(t, []string{"matches"}, unknown)
		assert.Equal(t, "home", out.Equals)
	})

	t.Run("map without known operators is not a filter", func(t *testing.T) {
		_, unknown, ok := asFieldFilter(map[string]any{"nested": "object"})
		assert.False(t, ok)
		assert.Equal(t, []string{"nested"}, unknown)
	})

	t.Run("scalar is not a filter", func(t *testing.T) {
		_, _, ok := asFieldFilter("home")
		assert.False(t, ok)
	})
}
