package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/memedex/internal/catalog"
)

func seededCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, _ := newCatalog(t)
	ctx := userCtx()
	for _, n := range []catalog.NewItem{
		{Title: "zebra", Likes: 5, Tags: []string{"animals", "stripes"}},
		{Title: "apple", Likes: 5, Tags: []string{"food"}},
		{Title: "mango", Likes: 1, Tags: []string{"food", "animals"}},
		{Title: "banana", Likes: 9, Tags: []string{"food"}},
	} {
		_, err := c.Add(ctx, n)
		require.NoError(t, err)
	}
	return c
}

func id(v int64) *int64 { return &v }

func TestSearch_NoFilterReturnsEverythingByID(t *testing.T) {
	c := seededCatalog(t)
	assert.Equal(t, []string{"zebra", "apple", "mango", "banana"}, titles(c.Search(catalog.Query{})))
}

func TestSearch_SortModes(t *testing.T) {
	c := seededCatalog(t)

	cases := []struct {
		token string
		want  []string
	}{
		{"", []string{"zebra", "apple", "mango", "banana"}},
		{"bogus", []string{"zebra", "apple", "mango", "banana"}},
		{"id", []string{"zebra", "apple", "mango", "banana"}},
		{"reverse_id", []string{"banana", "mango", "apple", "zebra"}},
		{"title", []string{"apple", "banana", "mango", "zebra"}},
		{"reverse_title", []string{"zebra", "mango", "banana", "apple"}},
		// apple and zebra tie on likes; title breaks the tie.
		{"likes", []string{"mango", "apple", "zebra", "banana"}},
		{"reverse_likes", []string{"banana", "zebra", "apple", "mango"}},
	}
	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			order, _ := catalog.ParseSortOrder(tc.token)
			got := c.Search(catalog.Query{Sort: order})
			assert.Equal(t, tc.want, titles(got))
		})
	}
}

func TestSearch_ProgressiveFilters(t *testing.T) {
	c := seededCatalog(t)

	// Title narrows first; the id filter cannot bring back other items.
	got := c.Search(catalog.Query{Title: "apple", ID: id(3)})
	assert.Empty(t, got)

	got = c.Search(catalog.Query{Title: "apple", ID: id(2), Tags: []string{"food"}})
	assert.Equal(t, []string{"apple"}, titles(got))

	// An empty title match stays empty even when the tag filter would match.
	got = c.Search(catalog.Query{Title: "missing", Tags: []string{"food"}})
	assert.Empty(t, got)

	got = c.Search(catalog.Query{ID: id(3), Tags: []string{"stripes"}})
	assert.Empty(t, got)

	got = c.Search(catalog.Query{Tags: []string{"food", "animals"}})
	assert.Equal(t, []string{"mango"}, titles(got))

	// Unknown tags are dropped next to a known one; alone they match nothing.
	got = c.Search(catalog.Query{Tags: []string{"FOOD", "unknown"}, Sort: catalog.SortOrder{Key: catalog.SortByTitle}})
	assert.Equal(t, []string{"apple", "banana", "mango"}, titles(got))
	got = c.Search(catalog.Query{Tags: []string{"unknown"}})
	assert.Empty(t, got)
	got = c.Search(catalog.Query{Title: "apple", Tags: []string{"unknown"}})
	assert.Empty(t, got)
	assert.Len(t, c.Search(catalog.Query{}), 4)
}

func TestSearch_TitleContains(t *testing.T) {
	c := seededCatalog(t)

	got := c.Search(catalog.Query{Title: "AN", TitleMatch: catalog.MatchContains, Sort: catalog.SortOrder{Key: catalog.SortByTitle}})
	assert.Equal(t, []string{"banana", "mango"}, titles(got))

	got = c.Search(catalog.Query{Title: "an", TitleMatch: catalog.MatchExact})
	assert.Empty(t, got)
}

func TestSearch_Idempotent(t *testing.T) {
	c := seededCatalog(t)
	q := catalog.Query{Tags: []string{"food"}, Sort: catalog.SortOrder{Key: catalog.SortByLikes, Reverse: true}}
	assert.Equal(t, c.Search(q), c.Search(q))
}

func TestParseSortOrder(t *testing.T) {
	order, ok := catalog.ParseSortOrder(" Reverse_Likes ")
	assert.True(t, ok)
	assert.Equal(t, catalog.SortOrder{Key: catalog.SortByLikes, Reverse: true}, order)
	assert.Equal(t, "reverse_likes", order.String())

	order, ok = catalog.ParseSortOrder("nope")
	assert.False(t, ok)
	assert.Equal(t, catalog.SortOrder{}, order)
	assert.Equal(t, "id", order.String())
}

func TestTags_Ordering(t *testing.T) {
	c := seededCatalog(t)

	byTitle := c.Tags(catalog.TagOrder{})
	assert.Equal(t, []catalog.Tag{{Title: "animals", UsageCount: 2}, {Title: "food", UsageCount: 3}, {Title: "stripes", UsageCount: 1}}, byTitle)

	order, ok := catalog.ParseTagOrder("reverse_count")
	require.True(t, ok)
	assert.Equal(t, []catalog.Tag{{Title: "food", UsageCount: 3}, {Title: "animals", UsageCount: 2}, {Title: "stripes", UsageCount: 1}}, c.Tags(order))
}
