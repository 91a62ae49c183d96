package catalog

import "context"

// Store is the durable, transactional backing store of the catalog. Reads
// happen outside transactions; every mutation runs inside WithTx.
type Store interface {
	// WithTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error

	QueryAll(ctx context.Context) ([]Item, error)
	QueryTags(ctx context.Context) ([]Tag, error)
	// QueryByID returns ErrNotFound when no item has the id.
	QueryByID(ctx context.Context, id int64) (Item, error)
	QueryByTitleSubstring(ctx context.Context, substr string) ([]Item, error)
	// QueryByTagSet returns the items carrying every listed tag.
	QueryByTagSet(ctx context.Context, tags []string) ([]Item, error)
}

// StoreTx is the set of writes available inside a transaction. Items are
// addressed by title and tags by tag title.
type StoreTx interface {
	// InsertItem stores the item's title, likes and owner and returns the
	// assigned id. Tag links are written separately.
	InsertItem(ctx context.Context, item Item) (int64, error)
	RenameItem(ctx context.Context, oldTitle, newTitle string) error
	UpdateLikes(ctx context.Context, title string, likes int) error
	DeleteItem(ctx context.Context, title string) error

	// RegisterTag creates the tag with a zero count if it does not exist.
	RegisterTag(ctx context.Context, title string) error
	DeleteTag(ctx context.Context, title string) error
	// UpsertTagLink links the tag to the item; an existing link is left alone.
	UpsertTagLink(ctx context.Context, tagTitle, itemTitle string) error
	RemoveTagLink(ctx context.Context, tagTitle, itemTitle string) error
	IncrementTagCount(ctx context.Context, tagTitle string) error
	// DecrementTagCount never takes a count below zero.
	DecrementTagCount(ctx context.Context, tagTitle string) error
}
