package testutil

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/joestump/memedex/internal/catalog"
)

type memItem struct {
	id    int64
	title string
	likes int
	owner string
	tags  map[string]struct{}
}

type memState struct {
	nextID int64
	items  map[string]*memItem
	tags   map[string]int
}

func (s memState) clone() memState {
	out := memState{
		nextID: s.nextID,
		items:  make(map[string]*memItem, len(s.items)),
		tags:   maps.Clone(s.tags),
	}
	for k, it := range s.items {
		cp := *it
		cp.tags = maps.Clone(it.tags)
		out.items[k] = &cp
	}
	return out
}

// MemoryStore is a catalog.Store kept in process memory for catalog tests.
// Transactions are serialized and roll back by restoring a snapshot.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		items: make(map[string]*memItem),
		tags:  make(map[string]int),
	}}
}

// WithTx runs fn against the store, discarding its writes if fn fails.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(catalog.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(&memTx{s: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) QueryAll(ctx context.Context) ([]catalog.Item, error) {
	return s.query(ctx, func(*memItem) bool { return true })
}

func (s *MemoryStore) QueryTags(ctx context.Context) ([]catalog.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Tag, 0, len(s.state.tags))
	for title, count := range s.state.tags {
		out = append(out, catalog.Tag{Title: title, UsageCount: count})
	}
	slices.SortFunc(out, func(a, b catalog.Tag) int { return strings.Compare(a.Title, b.Title) })
	return out, nil
}

func (s *MemoryStore) QueryByID(ctx context.Context, id int64) (catalog.Item, error) {
	items, err := s.query(ctx, func(it *memItem) bool { return it.id == id })
	if err != nil {
		return catalog.Item{}, err
	}
	if len(items) == 0 {
		return catalog.Item{}, fmt.Errorf("item %d: %w", id, catalog.ErrNotFound)
	}
	return items[0], nil
}

func (s *MemoryStore) QueryByTitleSubstring(ctx context.Context, substr string) ([]catalog.Item, error) {
	substr = strings.ToLower(substr)
	return s.query(ctx, func(it *memItem) bool { return strings.Contains(it.title, substr) })
}

func (s *MemoryStore) QueryByTagSet(ctx context.Context, tags []string) ([]catalog.Item, error) {
	return s.query(ctx, func(it *memItem) bool {
		for _, t := range tags {
			if _, ok := it.tags[t]; !ok {
				return false
			}
		}
		return true
	})
}

func (s *MemoryStore) query(ctx context.Context, keep func(*memItem) bool) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Item
	for _, it := range s.state.items {
		if keep(it) {
			out = append(out, catalog.Item{
				ID:    it.id,
				Title: it.title,
				Likes: it.likes,
				Owner: it.owner,
				Tags:  slices.Sorted(maps.Keys(it.tags)),
			})
		}
	}
	slices.SortFunc(out, func(a, b catalog.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

var _ catalog.Store = (*MemoryStore)(nil)

type memTx struct {
	s *memState
}

func (tx *memTx) item(title string) (*memItem, error) {
	it, ok := tx.s.items[title]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", title, catalog.ErrNotFound)
	}
	return it, nil
}

func (tx *memTx) tag(title string) error {
	if _, ok := tx.s.tags[title]; !ok {
		return fmt.Errorf("tag %q: %w", title, catalog.ErrNotFound)
	}
	return nil
}

func (tx *memTx) InsertItem(ctx context.Context, item catalog.Item) (int64, error) {
	if _, ok := tx.s.items[item.Title]; ok {
		return 0, fmt.Errorf("item %q: %w", item.Title, catalog.ErrDuplicateTitle)
	}
	tx.s.nextID++
	tx.s.items[item.Title] = &memItem{
		id:    tx.s.nextID,
		title: item.Title,
		likes: item.Likes,
		owner: item.Owner,
		tags:  make(map[string]struct{}),
	}
	return tx.s.nextID, nil
}

func (tx *memTx) RenameItem(ctx context.Context, oldTitle, newTitle string) error {
	it, err := tx.item(oldTitle)
	if err != nil {
		return err
	}
	if _, ok := tx.s.items[newTitle]; ok {
		return fmt.Errorf("item %q: %w", newTitle, catalog.ErrDuplicateTitle)
	}
	delete(tx.s.items, oldTitle)
	it.title = newTitle
	tx.s.items[newTitle] = it
	return nil
}

func (tx *memTx) UpdateLikes(ctx context.Context, title string, likes int) error {
	it, err := tx.item(title)
	if err != nil {
		return err
	}
	it.likes = likes
	return nil
}

func (tx *memTx) DeleteItem(ctx context.Context, title string) error {
	if _, err := tx.item(title); err != nil {
		return err
	}
	delete(tx.s.items, title)
	return nil
}

func (tx *memTx) RegisterTag(ctx context.Context, title string) error {
	if _, ok := tx.s.tags[title]; !ok {
		tx.s.tags[title] = 0
	}
	return nil
}

func (tx *memTx) DeleteTag(ctx context.Context, title string) error {
	if err := tx.tag(title); err != nil {
		return err
	}
	for _, it := range tx.s.items {
		delete(it.tags, title)
	}
	delete(tx.s.tags, title)
	return nil
}

func (tx *memTx) UpsertTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	it, err := tx.item(itemTitle)
	if err != nil {
		return err
	}
	if err := tx.tag(tagTitle); err != nil {
		return err
	}
	it.tags[tagTitle] = struct{}{}
	return nil
}

func (tx *memTx) RemoveTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	if it, ok := tx.s.items[itemTitle]; ok {
		delete(it.tags, tagTitle)
	}
	return nil
}

func (tx *memTx) IncrementTagCount(ctx context.Context, tagTitle string) error {
	if err := tx.tag(tagTitle); err != nil {
		return err
	}
	tx.s.tags[tagTitle]++
	return nil
}

func (tx *memTx) DecrementTagCount(ctx context.Context, tagTitle string) error {
	if tx.s.tags[tagTitle] > 0 {
		tx.s.tags[tagTitle]--
	}
	return nil
}
