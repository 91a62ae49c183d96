package catalog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

type itemRecord struct {
	id    uint32
	title string
	likes int
	owner string
	tags  []string
}

func (r *itemRecord) item() Item {
	return Item{
		ID:    int64(r.id),
		Title: r.title,
		Likes: r.likes,
		Owner: r.owner,
		Tags:  slices.Clone(r.tags),
	}
}

type tagRecord struct {
	title string
	count int
	items *roaring.Bitmap
}

// Index is the in-memory view of the catalog: items by title and id, and for
// every tag its usage count and the bitmap of item ids carrying it.
//
// Index is not safe for concurrent use; Catalog guards it.
type Index struct {
	byTitle map[string]uint32
	byID    map[uint32]*itemRecord
	tags    map[string]*tagRecord
	all     *roaring.Bitmap
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byTitle: make(map[string]uint32),
		byID:    make(map[uint32]*itemRecord),
		tags:    make(map[string]*tagRecord),
		all:     roaring.New(),
	}
}

// Len returns the number of items.
func (x *Index) Len() int { return len(x.byID) }

// TagLen returns the number of known tags.
func (x *Index) TagLen() int { return len(x.tags) }

// ByTitle returns the item with the given canonical title.
func (x *Index) ByTitle(title string) (Item, bool) {
	id, ok := x.byTitle[title]
	if !ok {
		return Item{}, false
	}
	return x.byID[id].item(), true
}

// ByID returns the item with the given id.
func (x *Index) ByID(id int64) (Item, bool) {
	key, ok := indexKey(id)
	if !ok {
		return Item{}, false
	}
	r, ok := x.byID[key]
	if !ok {
		return Item{}, false
	}
	return r.item(), true
}

// Tag returns the tag with the given canonical title.
func (x *Index) Tag(title string) (Tag, bool) {
	t, ok := x.tags[title]
	if !ok {
		return Tag{}, false
	}
	return Tag{Title: t.title, UsageCount: t.count}, true
}

// HasTag reports whether the tag is known.
func (x *Index) HasTag(title string) bool {
	_, ok := x.tags[title]
	return ok
}

// Tags returns every known tag in title order.
func (x *Index) Tags() []Tag {
	out := make([]Tag, 0, len(x.tags))
	for _, t := range x.tags {
		out = append(out, Tag{Title: t.title, UsageCount: t.count})
	}
	slices.SortFunc(out, func(a, b Tag) int { return strings.Compare(a.Title, b.Title) })
	return out
}

// TagMembers returns how many items are linked to the tag.
func (x *Index) TagMembers(title string) int {
	t, ok := x.tags[title]
	if !ok {
		return 0
	}
	return int(t.items.GetCardinality())
}

// ItemsWithAllTags returns the items carrying every recognized tag in titles,
// ordered by id. Unknown titles are ignored as long as one title is known;
// when none is, nothing matches. An empty titles matches every item.
func (x *Index) ItemsWithAllTags(titles []string) []Item {
	if len(titles) == 0 {
		return x.materialize(x.all)
	}
	return x.materialize(x.tagMatches(titles))
}

// tagMatches intersects the bitmaps of the recognized tags in titles. The
// result is empty when no title is recognized.
func (x *Index) tagMatches(titles []string) *roaring.Bitmap {
	var sets []*roaring.Bitmap
	for _, title := range titles {
		if t, ok := x.tags[title]; ok {
			sets = append(sets, t.items)
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastAnd(sets...)
}

func (x *Index) titleMatches(title string, mode TitleMatch) *roaring.Bitmap {
	out := roaring.New()
	if mode == MatchContains {
		for t, id := range x.byTitle {
			if strings.Contains(t, title) {
				out.Add(id)
			}
		}
		return out
	}
	if id, ok := x.byTitle[title]; ok {
		out.Add(id)
	}
	return out
}

func (x *Index) idMatches(id int64) *roaring.Bitmap {
	out := roaring.New()
	if key, ok := indexKey(id); ok {
		if _, exists := x.byID[key]; exists {
			out.Add(key)
		}
	}
	return out
}

func (x *Index) materialize(bm *roaring.Bitmap) []Item {
	out := make([]Item, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if r, ok := x.byID[it.Next()]; ok {
			out = append(out, r.item())
		}
	}
	return out
}

// RegisterTagIfAbsent adds the tag with a zero count when it is unknown.
func (x *Index) RegisterTagIfAbsent(title string) {
	x.tag(title)
}

func (x *Index) tag(title string) *tagRecord {
	t, ok := x.tags[title]
	if !ok {
		t = &tagRecord{title: title, items: roaring.New()}
		x.tags[title] = t
	}
	return t
}

// SetTagCount overwrites a tag's count, registering the tag if needed. It is
// used when loading stored counts.
func (x *Index) SetTagCount(title string, count int) {
	x.tag(title).count = max(count, 0)
}

// IncrementTag adds one to the tag's count.
func (x *Index) IncrementTag(title string) {
	x.tag(title).count++
}

// DecrementTag subtracts one from the tag's count, never going below zero.
func (x *Index) DecrementTag(title string) {
	if t, ok := x.tags[title]; ok && t.count > 0 {
		t.count--
	}
}

// RemoveTag forgets a tag. Items still linked to it keep the title in their
// tag list, so callers remove only unused tags.
func (x *Index) RemoveTag(title string) {
	delete(x.tags, title)
}

// Insert adds an item and links it to its tags, registering unknown tags with
// a zero count. Counts are not touched.
func (x *Index) Insert(item Item) error {
	key, ok := indexKey(item.ID)
	if !ok {
		return fmt.Errorf("catalog: item id %d out of index range", item.ID)
	}
	if _, exists := x.byTitle[item.Title]; exists {
		return fmt.Errorf("catalog: title %q already indexed", item.Title)
	}
	if _, exists := x.byID[key]; exists {
		return fmt.Errorf("catalog: id %d already indexed", item.ID)
	}
	tags := slices.Clone(item.Tags)
	slices.Sort(tags)
	tags = slices.Compact(tags)
	r := &itemRecord{id: key, title: item.Title, likes: item.Likes, owner: item.Owner, tags: tags}
	x.byTitle[r.title] = key
	x.byID[key] = r
	x.all.Add(key)
	for _, t := range tags {
		x.tag(t).items.Add(key)
	}
	return nil
}

// Remove deletes the item with the given title and unlinks it from its tags.
func (x *Index) Remove(title string) {
	key, ok := x.byTitle[title]
	if !ok {
		return
	}
	r := x.byID[key]
	for _, t := range r.tags {
		if tr, ok := x.tags[t]; ok {
			tr.items.Remove(key)
		}
	}
	delete(x.byTitle, title)
	delete(x.byID, key)
	x.all.Remove(key)
}

// Rename moves an item to a new title. The id and tag links are unchanged.
func (x *Index) Rename(oldTitle, newTitle string) {
	key, ok := x.byTitle[oldTitle]
	if !ok || oldTitle == newTitle {
		return
	}
	delete(x.byTitle, oldTitle)
	x.byTitle[newTitle] = key
	x.byID[key].title = newTitle
}

// SetLikes overwrites the item's like count.
func (x *Index) SetLikes(title string, likes int) {
	if key, ok := x.byTitle[title]; ok {
		x.byID[key].likes = likes
	}
}

// Retag replaces the item's tag links. Counts are not touched.
func (x *Index) Retag(title string, tags []string) {
	key, ok := x.byTitle[title]
	if !ok {
		return
	}
	r := x.byID[key]
	for _, t := range r.tags {
		if tr, ok := x.tags[t]; ok {
			tr.items.Remove(key)
		}
	}
	r.tags = slices.Clone(tags)
	slices.Sort(r.tags)
	r.tags = slices.Compact(r.tags)
	for _, t := range r.tags {
		x.tag(t).items.Add(key)
	}
}

func indexKey(id int64) (uint32, bool) {
	if id <= 0 || id > math.MaxUint32 {
		return 0, false
	}
	return uint32(id), true
}
