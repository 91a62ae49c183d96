package catalog

import (
	"context"
	"fmt"
	"slices"
)

// TagDrift records a tag whose stored count, stored links and indexed count
// disagree, or that only one side knows.
type TagDrift struct {
	Tag     string `json:"tag"`
	Stored  int    `json:"stored"`
	Linked  int    `json:"linked"`
	Indexed int    `json:"indexed"`
	Reason  string `json:"reason,omitempty"`
}

// ItemDrift records an indexed item the store does not return as expected.
type ItemDrift struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Report is the outcome of Audit.
type Report struct {
	Items      int         `json:"items"`
	Tags       int         `json:"tags"`
	TagDrift   []TagDrift  `json:"tag_drift,omitempty"`
	ItemDrift  []ItemDrift `json:"item_drift,omitempty"`
	StoreItems int         `json:"store_items"`
}

// Clean reports whether the audit found no drift.
func (r Report) Clean() bool {
	return len(r.TagDrift) == 0 && len(r.ItemDrift) == 0 && r.Items == r.StoreItems
}

// Audit compares the index with the store. It holds the mutation lock so
// that both sides are read at the same point.
func (c *Catalog) Audit(ctx context.Context) (Report, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var rep Report
	rep.Items = c.idx.Len()
	rep.Tags = c.idx.TagLen()

	all, err := c.store.QueryAll(ctx)
	if err != nil {
		return rep, storeFailure("audit items", err)
	}
	rep.StoreItems = len(all)

	tags, err := c.store.QueryTags(ctx)
	if err != nil {
		return rep, storeFailure("audit tags", err)
	}
	storedTags := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		storedTags[t.Title] = struct{}{}
		linked, err := c.store.QueryByTagSet(ctx, []string{t.Title})
		if err != nil {
			return rep, storeFailure(fmt.Sprintf("audit tag %q", t.Title), err)
		}
		indexed, ok := c.idx.Tag(t.Title)
		drift := TagDrift{Tag: t.Title, Stored: t.UsageCount, Linked: len(linked), Indexed: indexed.UsageCount}
		switch {
		case !ok:
			drift.Reason = "missing from index"
		case t.UsageCount != len(linked) || indexed.UsageCount != t.UsageCount || c.idx.TagMembers(t.Title) != len(linked):
			drift.Reason = "counts differ"
		default:
			continue
		}
		rep.TagDrift = append(rep.TagDrift, drift)
	}
	for _, t := range c.idx.Tags() {
		if _, ok := storedTags[t.Title]; !ok {
			rep.TagDrift = append(rep.TagDrift, TagDrift{Tag: t.Title, Indexed: t.UsageCount, Reason: "missing from store"})
		}
	}

	for _, it := range c.idx.materialize(c.idx.all) {
		stored, err := c.store.QueryByID(ctx, it.ID)
		switch Kind(err) {
		case KindNone:
		case KindNotFound:
			rep.ItemDrift = append(rep.ItemDrift, ItemDrift{ID: it.ID, Title: it.Title, Reason: "missing from store"})
			continue
		default:
			return rep, storeFailure(fmt.Sprintf("audit item %d", it.ID), err)
		}
		if stored.Title != it.Title || stored.Likes != it.Likes || !slices.Equal(stored.Tags, it.Tags) {
			rep.ItemDrift = append(rep.ItemDrift, ItemDrift{ID: it.ID, Title: it.Title, Reason: "fields differ"})
			continue
		}
		matches, err := c.store.QueryByTitleSubstring(ctx, it.Title)
		if err != nil {
			return rep, storeFailure(fmt.Sprintf("audit item %d", it.ID), err)
		}
		if !slices.ContainsFunc(matches, func(m Item) bool { return m.ID == it.ID }) {
			rep.ItemDrift = append(rep.ItemDrift, ItemDrift{ID: it.ID, Title: it.Title, Reason: "not found by title"})
		}
	}
	return rep, nil
}
