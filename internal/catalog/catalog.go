package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
)

// Catalog coordinates the durable store and the in-memory index. Mutations
// are serialized; each one validates against the index, writes all of its
// store changes in a single transaction, and touches the index only after
// that transaction commits. Searches run concurrently with each other and
// never observe a half-applied mutation.
type Catalog struct {
	store  Store
	logger *slog.Logger

	writeMu sync.Mutex   // serializes mutations
	mu      sync.RWMutex // guards idx
	idx     *Index
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for mutation and rebuild events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Open builds a Catalog over store, loading every item and tag into the
// index.
func Open(ctx context.Context, store Store, opts ...Option) (*Catalog, error) {
	c := &Catalog{store: store, logger: slog.Default(), idx: NewIndex()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload rebuilds the index from the store.
func (c *Catalog) Reload(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.reload(ctx)
}

func (c *Catalog) reload(ctx context.Context) error {
	tags, err := c.store.QueryTags(ctx)
	if err != nil {
		return storeFailure("load tags", err)
	}
	items, err := c.store.QueryAll(ctx)
	if err != nil {
		return storeFailure("load items", err)
	}

	idx := NewIndex()
	for _, t := range tags {
		idx.SetTagCount(t.Title, t.UsageCount)
	}
	for _, it := range items {
		if err := idx.Insert(it); err != nil {
			return fmt.Errorf("load items: %w", err)
		}
	}

	c.mu.Lock()
	c.idx = idx
	c.mu.Unlock()
	c.logger.Info("catalog loaded", "items", idx.Len(), "tags", idx.TagLen())
	return nil
}

// Search runs a query against the index. The returned items are copies.
func (c *Catalog) Search(q Query) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return search(c.idx, q)
}

// Get returns the item with the given title.
func (c *Catalog) Get(title string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.ByTitle(NormalizeTitle(title))
}

// GetByID returns the item with the given id.
func (c *Catalog) GetByID(id int64) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.ByID(id)
}

// ItemsWithAllTags returns the items carrying every known tag in titles.
func (c *Catalog) ItemsWithAllTags(titles []string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.ItemsWithAllTags(NormalizeTags(titles))
}

// Tag returns the tag with the given title.
func (c *Catalog) Tag(title string) (Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.Tag(NormalizeTitle(title))
}

// Tags lists every tag in the given order.
func (c *Catalog) Tags(order TagOrder) []Tag {
	c.mu.RLock()
	tags := c.idx.Tags()
	c.mu.RUnlock()
	slices.SortFunc(tags, order.Compare)
	return tags
}

// Stats is a point-in-time size of the catalog.
type Stats struct {
	Items int `json:"items"`
	Tags  int `json:"tags"`
}

// Stats returns the current item and tag counts.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Items: c.idx.Len(), Tags: c.idx.TagLen()}
}

// Add stores a new item owned by the context identity and links it to its
// tags, creating tags that do not exist yet.
func (c *Catalog) Add(ctx context.Context, n NewItem) (Item, error) {
	owner := IdentityFromContext(ctx)
	if owner == "" {
		return Item{}, ErrNoIdentity
	}
	n.normalize()
	if err := n.Validate(); err != nil {
		return Item{}, invalid(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Reads of c.idx below need no c.mu: only holders of writeMu modify it.
	if _, exists := c.idx.ByTitle(n.Title); exists {
		return Item{}, duplicate(n.Title)
	}

	item := Item{Title: n.Title, Likes: n.Likes, Owner: owner, Tags: n.Tags}
	err := c.store.WithTx(ctx, func(tx StoreTx) error {
		id, err := tx.InsertItem(ctx, item)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		if id <= 0 || id > math.MaxUint32 {
			return fmt.Errorf("insert item: id %d out of range", id)
		}
		item.ID = id
		for _, t := range item.Tags {
			if !c.idx.HasTag(t) {
				if err := tx.RegisterTag(ctx, t); err != nil {
					return fmt.Errorf("register tag %q: %w", t, err)
				}
			}
			if err := tx.UpsertTagLink(ctx, t, item.Title); err != nil {
				return fmt.Errorf("link tag %q: %w", t, err)
			}
			if err := tx.IncrementTagCount(ctx, t); err != nil {
				return fmt.Errorf("increment tag %q: %w", t, err)
			}
		}
		return nil
	})
	if err != nil {
		return Item{}, storeFailure("add", err)
	}

	c.apply(ctx, func(x *Index) error {
		if err := x.Insert(item); err != nil {
			return err
		}
		for _, t := range item.Tags {
			x.IncrementTag(t)
		}
		return nil
	})
	c.logger.Debug("item added", "title", item.Title, "id", item.ID, "owner", owner)
	return item, nil
}

// Edit replaces the title, tags or likes of an existing item. Tag counts
// move by the difference between the old and new tag sets.
func (c *Catalog) Edit(ctx context.Context, e Edit) (Item, error) {
	if IdentityFromContext(ctx) == "" {
		return Item{}, ErrNoIdentity
	}
	e.normalize()
	if err := e.Validate(); err != nil {
		return Item{}, invalid(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, ok := c.idx.ByTitle(e.Title)
	if !ok {
		return Item{}, notFound("item", e.Title)
	}
	next := cur
	rename := e.NewTitle != "" && e.NewTitle != cur.Title
	if rename {
		if _, taken := c.idx.ByTitle(e.NewTitle); taken {
			return Item{}, duplicate(e.NewTitle)
		}
		next.Title = e.NewTitle
	}
	if e.Tags != nil {
		next.Tags = e.Tags
	}
	if e.Likes != nil {
		next.Likes = *e.Likes
	}
	added, removed := diffTags(cur.Tags, next.Tags)

	err := c.store.WithTx(ctx, func(tx StoreTx) error {
		for _, t := range added {
			if !c.idx.HasTag(t) {
				if err := tx.RegisterTag(ctx, t); err != nil {
					return fmt.Errorf("register tag %q: %w", t, err)
				}
			}
			if err := tx.UpsertTagLink(ctx, t, cur.Title); err != nil {
				return fmt.Errorf("link tag %q: %w", t, err)
			}
			if err := tx.IncrementTagCount(ctx, t); err != nil {
				return fmt.Errorf("increment tag %q: %w", t, err)
			}
		}
		for _, t := range removed {
			if err := tx.RemoveTagLink(ctx, t, cur.Title); err != nil {
				return fmt.Errorf("unlink tag %q: %w", t, err)
			}
			if err := tx.DecrementTagCount(ctx, t); err != nil {
				return fmt.Errorf("decrement tag %q: %w", t, err)
			}
		}
		if next.Likes != cur.Likes {
			if err := tx.UpdateLikes(ctx, cur.Title, next.Likes); err != nil {
				return fmt.Errorf("update likes: %w", err)
			}
		}
		if rename {
			if err := tx.RenameItem(ctx, cur.Title, next.Title); err != nil {
				return fmt.Errorf("rename item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Item{}, storeFailure("edit", err)
	}

	c.apply(ctx, func(x *Index) error {
		for _, t := range added {
			x.IncrementTag(t)
		}
		for _, t := range removed {
			x.DecrementTag(t)
		}
		x.Retag(cur.Title, next.Tags)
		x.SetLikes(cur.Title, next.Likes)
		x.Rename(cur.Title, next.Title)
		return nil
	})
	c.logger.Debug("item edited", "title", cur.Title, "new_title", next.Title, "added", added, "removed", removed)
	return next, nil
}

// Like adds one to the item's like count.
func (c *Catalog) Like(ctx context.Context, title string) (Item, error) {
	if IdentityFromContext(ctx) == "" {
		return Item{}, ErrNoIdentity
	}
	title = NormalizeTitle(title)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, ok := c.idx.ByTitle(title)
	if !ok {
		return Item{}, notFound("item", title)
	}
	if cur.Likes >= MaxLikes {
		return cur, nil
	}
	cur.Likes++
	err := c.store.WithTx(ctx, func(tx StoreTx) error {
		return tx.UpdateLikes(ctx, title, cur.Likes)
	})
	if err != nil {
		return Item{}, storeFailure("like", err)
	}
	c.apply(ctx, func(x *Index) error {
		x.SetLikes(title, cur.Likes)
		return nil
	})
	return cur, nil
}

// Delete removes an item and releases its tags. It returns the removed item.
func (c *Catalog) Delete(ctx context.Context, title string) (Item, error) {
	if IdentityFromContext(ctx) == "" {
		return Item{}, ErrNoIdentity
	}
	title = NormalizeTitle(title)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur, ok := c.idx.ByTitle(title)
	if !ok {
		return Item{}, notFound("item", title)
	}
	err := c.store.WithTx(ctx, func(tx StoreTx) error {
		for _, t := range cur.Tags {
			if err := tx.DecrementTagCount(ctx, t); err != nil {
				return fmt.Errorf("decrement tag %q: %w", t, err)
			}
			if err := tx.RemoveTagLink(ctx, t, cur.Title); err != nil {
				return fmt.Errorf("unlink tag %q: %w", t, err)
			}
		}
		if err := tx.DeleteItem(ctx, cur.Title); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
	if err != nil {
		return Item{}, storeFailure("delete", err)
	}
	c.apply(ctx, func(x *Index) error {
		for _, t := range cur.Tags {
			x.DecrementTag(t)
		}
		x.Remove(cur.Title)
		return nil
	})
	c.logger.Debug("item deleted", "title", cur.Title, "id", cur.ID)
	return cur, nil
}

// DeleteTag removes a tag that no item carries.
func (c *Catalog) DeleteTag(ctx context.Context, title string) error {
	if IdentityFromContext(ctx) == "" {
		return ErrNoIdentity
	}
	title = NormalizeTitle(title)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tag, ok := c.idx.Tag(title)
	if !ok {
		return notFound("tag", title)
	}
	if tag.UsageCount > 0 || c.idx.TagMembers(title) > 0 {
		return fmt.Errorf("tag %q: %w", title, ErrTagInUse)
	}
	err := c.store.WithTx(ctx, func(tx StoreTx) error {
		return tx.DeleteTag(ctx, title)
	})
	if err != nil {
		return storeFailure("delete tag", err)
	}
	c.apply(ctx, func(x *Index) error {
		x.RemoveTag(title)
		return nil
	})
	return nil
}

// apply runs fn against the index under the write lock. The store has
// already committed at this point, so an index error means the index has
// drifted and is rebuilt from the store.
func (c *Catalog) apply(ctx context.Context, fn func(*Index) error) {
	c.mu.Lock()
	err := fn(c.idx)
	c.mu.Unlock()
	if err == nil {
		return
	}
	c.logger.Error("index update failed, rebuilding", "error", err)
	if err := c.reload(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("index rebuild failed", "error", err)
	}
}

// diffTags returns the tags in next but not cur, and in cur but not next.
// Both inputs are sorted.
func diffTags(cur, next []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(cur) || j < len(next) {
		switch {
		case i == len(cur):
			added = append(added, next[j])
			j++
		case j == len(next):
			removed = append(removed, cur[i])
			i++
		case cur[i] == next[j]:
			i++
			j++
		case cur[i] < next[j]:
			removed = append(removed, cur[i])
			i++
		default:
			added = append(added, next[j])
			j++
		}
	}
	return added, removed
}
