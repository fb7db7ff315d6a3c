package store

import (
	"context"
	"testing"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhub/inkhub/internal/pkg/sqlite"
	"github.com/inkhub/inkhub/internal/pkg/xjson"
	"github.com/inkhub/inkhub/internal/query"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	drv, err := entsql.Open("sqlite3", sqlite.MemoryDSN(uuid.NewString()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = drv.Close() })

	s := New(drv)
	require.NoError(t, s.Bootstrap(context.Background()))

	return s
}

func testScope(orgIDs ...string) Scope {
	return Scope{OrganizationIDs: orgIDs, ActorID: uuid.NewString(), ActorRole: "editor"}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	orgID := uuid.NewString()
	scope := testScope(orgID)

	draft := map[string]any{"title": "First post", "views": float64(3)}

	created, err := s.Create(ctx, scope, CreateInput{
		Type:      "posts",
		DraftData: draft,
		CreatedBy: scope.ActorID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, orgID, created.OrganizationID)
	assert.Equal(t, StatusDraft, created.Status)
	assert.False(t, created.IsPublished())

	t.Run("get returns the stored draft", func(t *testing.T) {
		got, err := s.Get(ctx, scope, "posts", created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, xjson.Equal(draft, got.DraftData))
		assert.Nil(t, got.PublishedData)
	})

	t.Run("get of a missing id is nil without error", func(t *testing.T) {
		got, err := s.Get(ctx, scope, "posts", uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("publish sets the whole triad atomically", func(t *testing.T) {
		published, err := s.Publish(ctx, scope, "posts", created.ID, scope.ActorID)
		require.NoError(t, err)
		require.NotNil(t, published)

		assert.Equal(t, StatusPublished, published.Status)
		assert.True(t, xjson.Equal(draft, published.PublishedData))
		assert.NotNil(t, published.PublishedAt)

		wantHash, err := xjson.Hash(draft)
		require.NoError(t, err)
		assert.Equal(t, wantHash, published.PublishedHash)

		got, err := s.Get(ctx, scope, "posts", created.ID)
		require.NoError(t, err)
		assert.Equal(t, published.PublishedHash, got.PublishedHash)
		assert.True(t, got.IsPublished())
	})

	t.Run("draft edits do not disturb the published triad", func(t *testing.T) {
		edited := map[string]any{"title": "First post, edited"}

		updated, err := s.Update(ctx, scope, "posts", created.ID, UpdateInput{
			DraftData: edited,
			UpdatedBy: scope.ActorID,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)

		got, err := s.Get(ctx, scope, "posts", created.ID)
		require.NoError(t, err)
		assert.True(t, xjson.Equal(edited, got.DraftData))
		assert.True(t, xjson.Equal(draft, got.PublishedData))
		assert.Equal(t, StatusPublished, got.Status)
	})

	t.Run("unpublish clears the triad and is idempotent", func(t *testing.T) {
		first, err := s.Unpublish(ctx, scope, "posts", created.ID, scope.ActorID)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, first.Status)
		assert.Nil(t, first.PublishedAt)
		assert.Empty(t, first.PublishedHash)

		second, err := s.Unpublish(ctx, scope, "posts", created.ID, scope.ActorID)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, second.Status)
		assert.Nil(t, second.PublishedAt)
	})

	t.Run("delete reports whether a row was removed", func(t *testing.T) {
		deleted, err := s.Delete(ctx, scope, "posts", created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, scope, "posts", created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestPublishRejectsEmptyDraft(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := testScope(uuid.NewString())

	created, err := s.Create(ctx, scope, CreateInput{Type: "posts"})
	require.NoError(t, err)

	_, err = s.Publish(ctx, scope, "posts", created.ID, scope.ActorID)
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestPublishHashDeterminism(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := testScope(uuid.NewString())

	payload := map[string]any{"b": "two", "a": float64(1), "nested": map[string]any{"z": true, "a": "x"}}

	first, err := s.Create(ctx, scope, CreateInput{Type: "posts", DraftData: payload})
	require.NoError(t, err)
	second, err := s.Create(ctx, scope, CreateInput{Type: "posts", DraftData: payload})
	require.NoError(t, err)

	p1, err := s.Publish(ctx, scope, "posts", first.ID, scope.ActorID)
	require.NoError(t, err)
	p2, err := s.Publish(ctx, scope, "posts", second.ID, scope.ActorID)
	require.NoError(t, err)

	assert.Equal(t, p1.PublishedHash, p2.PublishedHash)
}

func TestFindMany(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	orgID := uuid.NewString()
	scope := testScope(orgID)

	titles := []string{"alpha", "bravo", "charlie", "delta"}
	for i, title := range titles {
		_, err := s.Create(ctx, scope, CreateInput{
			Type: "posts",
			DraftData: map[string]any{
				"title":  title,
				"rank":   float64(i),
				"author": map[string]any{"name": "casey"},
			},
		})
		require.NoError(t, err)
	}

	t.Run("dot path equality matches exactly one document", func(t *testing.T) {
		docs, total, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"title": map[string]any{"equals": "bravo"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, docs, 1)
		assert.Equal(t, "bravo", docs[0].DraftData["title"])
	})

	t.Run("nested path filter", func(t *testing.T) {
		docs, total, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"author.name": map[string]any{"equals": "casey"}},
		})
		require.NoError(t, err)
		assert.Equal(t, len(titles), total)
		assert.Len(t, docs, len(titles))
	})

	t.Run("sort limit offset paginate over the full total", func(t *testing.T) {
		docs, total, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Sort:   []string{"-rank"},
			Limit:  2,
			Offset: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, len(titles), total)
		require.Len(t, docs, 2)
		assert.Equal(t, "charlie", docs[0].DraftData["title"])
		assert.Equal(t, "bravo", docs[1].DraftData["title"])
	})

	t.Run("or branch unions field matches", func(t *testing.T) {
		_, total, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"or": []any{
				map[string]any{"title": map[string]any{"equals": "alpha"}},
				map[string]any{"title": map[string]any{"equals": "delta"}},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("published perspective sees only published payloads", func(t *testing.T) {
		docs, _, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"title": map[string]any{"equals": "alpha"}},
			Persp: query.PerspectivePublished,
		})
		require.NoError(t, err)
		assert.Empty(t, docs)

		all, _, err := s.FindMany(ctx, scope, "posts", query.FindOptions{})
		require.NoError(t, err)
		for _, doc := range all {
			if doc.DraftData["title"] == "alpha" {
				_, err = s.Publish(ctx, scope, "posts", doc.ID, scope.ActorID)
				require.NoError(t, err)
			}
		}

		docs, _, err = s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"title": map[string]any{"equals": "alpha"}},
			Persp: query.PerspectivePublished,
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "alpha", docs[0].PublishedData["title"])
	})

	t.Run("count matches find total", func(t *testing.T) {
		opts := query.FindOptions{Where: query.Where{"rank": map[string]any{"greater_than": float64(0)}}}

		_, total, err := s.FindMany(ctx, scope, "posts", opts)
		require.NoError(t, err)

		count, err := s.Count(ctx, scope, "posts", opts)
		require.NoError(t, err)
		assert.Equal(t, total, count)
	})
}

func TestScopeFiltering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	parentOrg := uuid.NewString()
	childOrg := uuid.NewString()
	otherOrg := uuid.NewString()

	for _, seed := range []struct {
		org   string
		title string
	}{
		{parentOrg, "parent doc"},
		{childOrg, "child doc"},
		{otherOrg, "other doc"},
	} {
		_, err := s.Create(ctx, testScope(seed.org), CreateInput{
			Type:      "posts",
			DraftData: map[string]any{"title": seed.title},
		})
		require.NoError(t, err)
	}

	t.Run("single organization sees only its own rows", func(t *testing.T) {
		docs, total, err := s.FindMany(ctx, testScope(parentOrg), "posts", query.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, docs, 1)
		assert.Equal(t, "parent doc", docs[0].DraftData["title"])
	})

	t.Run("hierarchy scope unions parent and child rows", func(t *testing.T) {
		_, total, err := s.FindMany(ctx, testScope(parentOrg, childOrg), "posts", query.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("hierarchy scope retries single row fetch into children", func(t *testing.T) {
		childDocs, _, err := s.FindMany(ctx, testScope(childOrg), "posts", query.FindOptions{})
		require.NoError(t, err)
		require.Len(t, childDocs, 1)

		got, err := s.Get(ctx, testScope(parentOrg, childOrg), "posts", childDocs[0].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, childOrg, got.OrganizationID)
	})

	t.Run("bypass store sees every tenant", func(t *testing.T) {
		_, total, err := s.Bypass().FindMany(ctx, Scope{Bypass: true}, "posts", query.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("cross tenant get is invisible, not an error", func(t *testing.T) {
		parentDocs, _, err := s.FindMany(ctx, testScope(parentOrg), "posts", query.FindOptions{})
		require.NoError(t, err)
		require.Len(t, parentDocs, 1)

		got, err := s.Get(ctx, testScope(otherOrg), "posts", parentDocs[0].ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestReferenceResolution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := testScope(uuid.NewString())

	author, err := s.Create(ctx, scope, CreateInput{
		Type:      "authors",
		DraftData: map[string]any{"name": "casey"},
	})
	require.NoError(t, err)

	post, err := s.Create(ctx, scope, CreateInput{
		Type: "posts",
		DraftData: map[string]any{
			"title":  "linked",
			"author": author.ID,
			"tags":   []any{"go", author.ID},
		},
	})
	require.NoError(t, err)

	findPost := func(t *testing.T, depth int) *Document {
		t.Helper()

		docs, _, err := s.FindMany(ctx, scope, "posts", query.FindOptions{
			Where: query.Where{"title": map[string]any{"equals": "linked"}},
			Depth: depth,
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)

		return docs[0]
	}

	t.Run("depth zero leaves reference strings untouched", func(t *testing.T) {
		doc := findPost(t, 0)
		assert.Equal(t, author.ID, doc.DraftData["author"])
	})

	t.Run("depth one expands references into records", func(t *testing.T) {
		doc := findPost(t, 1)

		record, ok := doc.DraftData["author"].(map[string]any)
		require.True(t, ok, "author should be expanded")
		assert.Equal(t, author.ID, record["id"])
		assert.Equal(t, "casey", record["name"])

		tags, ok := doc.DraftData["tags"].([]any)
		require.True(t, ok)
		assert.Equal(t, "go", tags[0])
		_, expanded := tags[1].(map[string]any)
		assert.True(t, expanded, "array element reference should be expanded")
	})

	t.Run("cyclic references terminate", func(t *testing.T) {
		_, err := s.Update(ctx, scope, "authors", author.ID, UpdateInput{
			DraftData: map[string]any{"name": "casey", "latestPost": post.ID},
		})
		require.NoError(t, err)

		doc := findPost(t, 5)

		record, ok := doc.DraftData["author"].(map[string]any)
		require.True(t, ok)

		// The cycle back to the root post stays a bare ID.
		assert.Equal(t, post.ID, record["latestPost"])
	})

	t.Run("missing reference stays a bare string", func(t *testing.T) {
		ghost := uuid.NewString()

		_, err := s.Update(ctx, scope, "posts", post.ID, UpdateInput{
			DraftData: map[string]any{"title": "linked", "author": ghost},
		})
		require.NoError(t, err)

		doc := findPost(t, 2)
		assert.Equal(t, ghost, doc.DraftData["author"])
	})
}

func TestOrganizations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Bypass()
	scope := Scope{Bypass: true}

	parent, err := s.CreateOrganization(ctx, scope, CreateOrganizationInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	childA, err := s.CreateOrganization(ctx, scope, CreateOrganizationInput{Name: "Acme EU", Slug: "acme-eu", ParentID: parent.ID})
	require.NoError(t, err)
	childB, err := s.CreateOrganization(ctx, scope, CreateOrganizationInput{Name: "Acme US", Slug: "acme-us", ParentID: parent.ID})
	require.NoError(t, err)

	t.Run("get by id and slug", func(t *testing.T) {
		got, err := s.GetOrganization(ctx, scope, parent.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "acme", got.Slug)

		bySlug, err := s.GetOrganizationBySlug(ctx, scope, "acme-eu")
		require.NoError(t, err)
		require.NotNil(t, bySlug)
		assert.Equal(t, childA.ID, bySlug.ID)

		missing, err := s.GetOrganization(ctx, scope, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("list children in creation order", func(t *testing.T) {
		children, err := s.ListChildOrganizations(ctx, scope, parent.ID)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, childA.ID, children[0].ID)
		assert.Equal(t, childB.ID, children[1].ID)

		none, err := s.ListChildOrganizations(ctx, scope, childA.ID)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestShapeRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := testScope(uuid.NewString())

	created, err := s.Create(ctx, scope, CreateInput{
		Type:      "posts",
		DraftData: map[string]any{"title": "shaped", "status": "payload wins never"},
		CreatedBy: scope.ActorID,
	})
	require.NoError(t, err)

	record := ShapeRecord(ctx, created, query.PerspectiveDraft)

	assert.Equal(t, created.ID, record["id"])
	assert.Equal(t, "shaped", record["title"])
	assert.Equal(t, "posts", record["type"])
	assert.Equal(t, string(StatusDraft), record["status"], "metadata wins over payload keys")
	assert.NotContains(t, record, "publishedAt")

	published, err := s.Publish(ctx, scope, "posts", created.ID, scope.ActorID)
	require.NoError(t, err)

	record = ShapeRecord(ctx, published, query.PerspectivePublished)
	assert.Equal(t, published.PublishedHash, record["publishedHash"])
	assert.NotEmpty(t, record["publishedAt"])
}
