package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// SortKey selects the primary sort field of a search.
type SortKey int

const (
	SortByID SortKey = iota
	SortByTitle
	SortByLikes
)

// SortOrder is a primary key plus direction. The zero value sorts by id,
// ascending.
type SortOrder struct {
	Key     SortKey
	Reverse bool
}

var sortTokens = map[string]SortOrder{
	"id":            {Key: SortByID},
	"title":         {Key: SortByTitle},
	"likes":         {Key: SortByLikes},
	"reverse_id":    {Key: SortByID, Reverse: true},
	"reverse_title": {Key: SortByTitle, Reverse: true},
	"reverse_likes": {Key: SortByLikes, Reverse: true},
}

// ParseSortOrder maps a sort token onto a SortOrder. Empty and unrecognized
// tokens select id ascending; ok reports whether the token was recognized.
func ParseSortOrder(token string) (order SortOrder, ok bool) {
	order, ok = sortTokens[strings.ToLower(strings.TrimSpace(token))]
	return order, ok
}

func (o SortOrder) String() string {
	var s string
	switch o.Key {
	case SortByTitle:
		s = "title"
	case SortByLikes:
		s = "likes"
	default:
		s = "id"
	}
	if o.Reverse {
		return "reverse_" + s
	}
	return s
}

// Compare orders two items by the primary key, breaking ties with title,
// then id, then likes. Reverse orders negate the whole comparison.
func (o SortOrder) Compare(a, b Item) int {
	var c int
	switch o.Key {
	case SortByLikes:
		c = cmp.Compare(a.Likes, b.Likes)
	case SortByID:
		c = cmp.Compare(a.ID, b.ID)
	}
	if c == 0 {
		c = cmp.Or(
			strings.Compare(a.Title, b.Title),
			cmp.Compare(a.ID, b.ID),
			cmp.Compare(a.Likes, b.Likes),
		)
	}
	if o.Reverse {
		return -c
	}
	return c
}

// TitleMatch selects how the title filter compares titles.
type TitleMatch int

const (
	MatchExact TitleMatch = iota
	MatchContains
)

// Query is a search request. Empty fields do not filter.
type Query struct {
	Title      string
	TitleMatch TitleMatch
	ID         *int64
	Tags       []string
	Sort       SortOrder
}

// search applies the title, id and tag filters in that order. Each filter
// narrows the result of the previous ones; once a filter leaves nothing the
// remaining filters are skipped.
func search(x *Index, q Query) []Item {
	var (
		cand     *roaring.Bitmap
		filtered bool
	)
	narrow := func(bm *roaring.Bitmap) {
		if !filtered {
			cand, filtered = bm, true
			return
		}
		cand.And(bm)
	}

	if title := NormalizeTitle(q.Title); title != "" {
		narrow(x.titleMatches(title, q.TitleMatch))
	}
	if q.ID != nil && (!filtered || !cand.IsEmpty()) {
		narrow(x.idMatches(*q.ID))
	}
	if len(q.Tags) > 0 && (!filtered || !cand.IsEmpty()) {
		narrow(x.tagMatches(NormalizeTags(q.Tags)))
	}
	if !filtered {
		cand = x.all
	}

	items := x.materialize(cand)
	slices.SortFunc(items, q.Sort.Compare)
	return items
}

// TagSortKey selects the primary sort field of a tag listing.
type TagSortKey int

const (
	TagSortByTitle TagSortKey = iota
	TagSortByCount
)

// TagOrder is the ordering of a tag listing. The zero value sorts by title.
type TagOrder struct {
	Key     TagSortKey
	Reverse bool
}

var tagSortTokens = map[string]TagOrder{
	"title":         {Key: TagSortByTitle},
	"count":         {Key: TagSortByCount},
	"reverse_title": {Key: TagSortByTitle, Reverse: true},
	"reverse_count": {Key: TagSortByCount, Reverse: true},
}

// ParseTagOrder maps a tag sort token onto a TagOrder, defaulting to title
// ascending.
func ParseTagOrder(token string) (order TagOrder, ok bool) {
	order, ok = tagSortTokens[strings.ToLower(strings.TrimSpace(token))]
	return order, ok
}

// Compare orders tags by the primary key with title as tie-breaker.
func (o TagOrder) Compare(a, b Tag) int {
	var c int
	if o.Key == TagSortByCount {
		c = cmp.Compare(a.UsageCount, b.UsageCount)
	}
	if c == 0 {
		c = strings.Compare(a.Title, b.Title)
	}
	if o.Reverse {
		return -c
	}
	return c
}
