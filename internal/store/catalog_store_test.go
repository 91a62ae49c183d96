package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/store"
	"github.com/joestump/memedex/internal/testutil"
)

func newSQLCatalog(t *testing.T) (*catalog.Catalog, *store.CatalogStore) {
	t.Helper()
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	c, err := catalog.Open(context.Background(), cs)
	require.NoError(t, err)
	return c, cs
}

func userCtx() context.Context {
	return catalog.WithIdentity(context.Background(), "alice")
}

func TestCatalogStore_MutationsPersist(t *testing.T) {
	c, cs := newSQLCatalog(t)
	ctx := userCtx()

	cat, err := c.Add(ctx, catalog.NewItem{Title: "cat_meme", Tags: []string{"funny", "cats"}})
	require.NoError(t, err)
	_, err = c.Add(ctx, catalog.NewItem{Title: "dog_meme", Likes: 4, Tags: []string{"funny"}})
	require.NoError(t, err)
	_, err = c.Edit(ctx, catalog.Edit{Title: "cat_meme", NewTitle: "kitty", Tags: []string{"funny", "wholesome"}})
	require.NoError(t, err)
	_, err = c.Delete(ctx, "dog_meme")
	require.NoError(t, err)

	tags, err := cs.QueryTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Tag{
		{Title: "cats", UsageCount: 0},
		{Title: "funny", UsageCount: 1},
		{Title: "wholesome", UsageCount: 1},
	}, tags)

	got, err := cs.QueryByID(context.Background(), cat.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.Item{ID: cat.ID, Title: "kitty", Owner: "alice", Tags: []string{"funny", "wholesome"}}, got)

	_, err = cs.QueryByID(context.Background(), 999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	reopened, err := catalog.Open(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, c.Search(catalog.Query{}), reopened.Search(catalog.Query{}))
	assert.Equal(t, c.Tags(catalog.TagOrder{}), reopened.Tags(catalog.TagOrder{}))

	rep, err := c.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Clean(), "audit: %+v", rep)
}

func TestCatalogStore_QueryByTagSet(t *testing.T) {
	c, cs := newSQLCatalog(t)
	ctx := userCtx()
	for _, n := range []catalog.NewItem{
		{Title: "a", Tags: []string{"x", "y"}},
		{Title: "b", Tags: []string{"x"}},
		{Title: "c", Tags: []string{"y"}},
	} {
		_, err := c.Add(ctx, n)
		require.NoError(t, err)
	}

	got, err := cs.QueryByTagSet(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)

	got, err = cs.QueryByTagSet(context.Background(), []string{"X"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = cs.QueryByTagSet(context.Background(), []string{"x", "missing"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = cs.QueryByTagSet(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCatalogStore_QueryByTitleSubstring(t *testing.T) {
	c, cs := newSQLCatalog(t)
	ctx := userCtx()
	for _, title := range []string{"cat_meme", "catxmeme", "100% cat", "dog"} {
		_, err := c.Add(ctx, catalog.NewItem{Title: title, Tags: []string{"t"}})
		require.NoError(t, err)
	}

	got, err := cs.QueryByTitleSubstring(context.Background(), "CAT")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// Wildcards in the needle match literally.
	got, err = cs.QueryByTitleSubstring(context.Background(), "t_m")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cat_meme", got[0].Title)

	got, err = cs.QueryByTitleSubstring(context.Background(), "0%")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% cat", got[0].Title)
}

func TestCatalogStore_RollbackOnFailure(t *testing.T) {
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	fs := testutil.NewFaultStore(cs)
	c, err := catalog.Open(context.Background(), fs)
	require.NoError(t, err)
	ctx := userCtx()

	_, err = c.Add(ctx, catalog.NewItem{Title: "first", Tags: []string{"shared"}})
	require.NoError(t, err)

	fs.FailOn("IncrementTagCount", 2)
	_, err = c.Add(ctx, catalog.NewItem{Title: "second", Tags: []string{"fresh", "shared"}})
	require.ErrorIs(t, err, catalog.ErrStore)

	all, err := cs.QueryAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	tags, err := cs.QueryTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Tag{{Title: "shared", UsageCount: 1}}, tags)

	second, err := c.Add(ctx, catalog.NewItem{Title: "second", Tags: []string{"fresh", "shared"}})
	require.NoError(t, err)
	assert.Greater(t, second.ID, int64(1))

	rep, err := c.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Clean(), "audit: %+v", rep)
}

func TestCatalogStore_DecrementFloorsAtZero(t *testing.T) {
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	ctx := context.Background()

	err := cs.WithTx(ctx, func(tx catalog.StoreTx) error {
		if err := tx.RegisterTag(ctx, "t"); err != nil {
			return err
		}
		if err := tx.RegisterTag(ctx, "t"); err != nil {
			return err
		}
		return tx.DecrementTagCount(ctx, "t")
	})
	require.NoError(t, err)

	tags, err := cs.QueryTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Tag{{Title: "t", UsageCount: 0}}, tags)
}

func TestCatalogStore_RenameOntoTakenTitle(t *testing.T) {
	cs := store.NewCatalogStore(testutil.NewTestDB(t))
	ctx := context.Background()

	err := cs.WithTx(ctx, func(tx catalog.StoreTx) error {
		if _, err := tx.InsertItem(ctx, catalog.Item{Title: "a"}); err != nil {
			return err
		}
		_, err := tx.InsertItem(ctx, catalog.Item{Title: "b"})
		return err
	})
	require.NoError(t, err)

	err = cs.WithTx(ctx, func(tx catalog.StoreTx) error {
		return tx.RenameItem(ctx, "a", "b")
	})
	assert.ErrorIs(t, err, catalog.ErrDuplicateTitle)

	err = cs.WithTx(ctx, func(tx catalog.StoreTx) error {
		return tx.UpdateLikes(ctx, "missing", 1)
	})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
