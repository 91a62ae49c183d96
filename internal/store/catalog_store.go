package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/memedex/internal/catalog"
)

type memeRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Likes     int       `db:"likes"`
	Owner     string    `db:"owner"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type tagRow struct {
	Title      string `db:"title"`
	UsageCount int    `db:"usage_count"`
}

type memeTagRow struct {
	MemeID int64  `db:"meme_id"`
	Title  string `db:"title"`
}

const selectMemes = `SELECT id, title, likes, owner, created_at, updated_at FROM memes`

// CatalogStore is the sqlx-backed catalog.Store. It works against SQLite,
// MySQL and PostgreSQL.
type CatalogStore struct {
	db *sqlx.DB
}

func NewCatalogStore(db *sqlx.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *CatalogStore) q(query string) string { return s.db.Rebind(query) }

// WithTx runs fn inside a database transaction.
func (s *CatalogStore) WithTx(ctx context.Context, fn func(catalog.StoreTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&catalogTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// QueryAll returns every meme with its tags, ordered by id.
func (s *CatalogStore) QueryAll(ctx context.Context) ([]catalog.Item, error) {
	return s.selectItems(ctx, selectMemes+` ORDER BY id`)
}

// QueryTags returns every tag with its stored usage count.
func (s *CatalogStore) QueryTags(ctx context.Context) ([]catalog.Tag, error) {
	var rows []tagRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT title, usage_count FROM tags ORDER BY title`); err != nil {
		return nil, err
	}
	out := make([]catalog.Tag, len(rows))
	for i, r := range rows {
		out[i] = catalog.Tag{Title: r.Title, UsageCount: r.UsageCount}
	}
	return out, nil
}

// QueryByID returns the meme with the given id, or catalog.ErrNotFound.
func (s *CatalogStore) QueryByID(ctx context.Context, id int64) (catalog.Item, error) {
	items, err := s.selectItems(ctx, s.q(selectMemes+` WHERE id = ?`), id)
	if err != nil {
		return catalog.Item{}, err
	}
	if len(items) == 0 {
		return catalog.Item{}, fmt.Errorf("meme %d: %w", id, catalog.ErrNotFound)
	}
	return items[0], nil
}

// QueryByTitleSubstring returns the memes whose title contains substr,
// compared case-insensitively.
func (s *CatalogStore) QueryByTitleSubstring(ctx context.Context, substr string) ([]catalog.Item, error) {
	pattern := "%" + escapeLike(strings.ToLower(substr)) + "%"
	return s.selectItems(ctx, s.q(selectMemes+` WHERE LOWER(title) LIKE ? ESCAPE '!' ORDER BY id`), pattern)
}

// QueryByTagSet returns the memes linked to every tag in tags. An empty set
// matches every meme.
func (s *CatalogStore) QueryByTagSet(ctx context.Context, tags []string) ([]catalog.Item, error) {
	tags = catalog.NormalizeTags(tags)
	if len(tags) == 0 {
		return s.QueryAll(ctx)
	}
	query, args, err := sqlx.In(`
		SELECT mt.meme_id FROM meme_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE t.title IN (?)
		GROUP BY mt.meme_id
		HAVING COUNT(DISTINCT t.id) = ?
	`, tags, len(tags))
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, s.q(query), args...); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err = sqlx.In(selectMemes+` WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return s.selectItems(ctx, s.q(query), args...)
}

// selectItems runs a meme query and attaches each meme's tags.
func (s *CatalogStore) selectItems(ctx context.Context, query string, args ...any) ([]catalog.Item, error) {
	var rows []memeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	tagQuery, tagArgs, err := sqlx.In(`
		SELECT mt.meme_id, t.title FROM meme_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE mt.meme_id IN (?)
		ORDER BY mt.meme_id, t.title
	`, ids)
	if err != nil {
		return nil, err
	}
	var links []memeTagRow
	if err := s.db.SelectContext(ctx, &links, s.q(tagQuery), tagArgs...); err != nil {
		return nil, err
	}
	tags := make(map[int64][]string, len(rows))
	for _, l := range links {
		tags[l.MemeID] = append(tags[l.MemeID], l.Title)
	}

	out := make([]catalog.Item, len(rows))
	for i, r := range rows {
		t := tags[r.ID]
		if t == nil {
			t = []string{}
		}
		out[i] = catalog.Item{ID: r.ID, Title: r.Title, Likes: r.Likes, Owner: r.Owner, Tags: t}
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards using '!' as the escape character, which
// needs no quoting in any of the supported dialects.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

type catalogTx struct {
	tx *sqlx.Tx
}

func (t *catalogTx) q(query string) string { return t.tx.Rebind(query) }

func (t *catalogTx) InsertItem(ctx context.Context, item catalog.Item) (int64, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO memes (title, likes, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	if t.tx.DriverName() == "postgres" {
		var id int64
		err := t.tx.GetContext(ctx, &id, t.q(insert+` RETURNING id`), item.Title, item.Likes, item.Owner, now, now)
		if err != nil {
			return 0, memeWriteError(item.Title, err)
		}
		return id, nil
	}

	res, err := t.tx.ExecContext(ctx, t.q(insert), item.Title, item.Likes, item.Owner, now, now)
	if err != nil {
		return 0, memeWriteError(item.Title, err)
	}
	return res.LastInsertId()
}

func (t *catalogTx) RenameItem(ctx context.Context, oldTitle, newTitle string) error {
	res, err := t.tx.ExecContext(ctx, t.q(`UPDATE memes SET title = ?, updated_at = ? WHERE title = ?`),
		newTitle, time.Now().UTC(), oldTitle)
	if err != nil {
		return memeWriteError(newTitle, err)
	}
	return expectRow(res, "meme", oldTitle)
}

func (t *catalogTx) UpdateLikes(ctx context.Context, title string, likes int) error {
	res, err := t.tx.ExecContext(ctx, t.q(`UPDATE memes SET likes = ?, updated_at = ? WHERE title = ?`),
		likes, time.Now().UTC(), title)
	if err != nil {
		return err
	}
	return expectRow(res, "meme", title)
}

func (t *catalogTx) DeleteItem(ctx context.Context, title string) error {
	if _, err := t.tx.ExecContext(ctx, t.q(`
		DELETE FROM meme_tags WHERE meme_id IN (SELECT id FROM memes WHERE title = ?)
	`), title); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, t.q(`DELETE FROM memes WHERE title = ?`), title)
	if err != nil {
		return err
	}
	return expectRow(res, "meme", title)
}

// RegisterTag selects before inserting so that an existing tag never causes
// a failed statement, which would abort a PostgreSQL transaction.
func (t *catalogTx) RegisterTag(ctx context.Context, title string) error {
	var n int
	if err := t.tx.GetContext(ctx, &n, t.q(`SELECT COUNT(*) FROM tags WHERE title = ?`), title); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, t.q(`INSERT INTO tags (title, usage_count, created_at) VALUES (?, 0, ?)`),
		title, time.Now().UTC())
	return err
}

func (t *catalogTx) DeleteTag(ctx context.Context, title string) error {
	if _, err := t.tx.ExecContext(ctx, t.q(`
		DELETE FROM meme_tags WHERE tag_id IN (SELECT id FROM tags WHERE title = ?)
	`), title); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, t.q(`DELETE FROM tags WHERE title = ?`), title)
	if err != nil {
		return err
	}
	return expectRow(res, "tag", title)
}

func (t *catalogTx) UpsertTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	var n int
	err := t.tx.GetContext(ctx, &n, t.q(`
		SELECT COUNT(*) FROM meme_tags mt
		JOIN memes m ON m.id = mt.meme_id
		JOIN tags t ON t.id = mt.tag_id
		WHERE m.title = ? AND t.title = ?
	`), itemTitle, tagTitle)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	res, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO meme_tags (meme_id, tag_id)
		SELECT m.id, t.id FROM memes m, tags t WHERE m.title = ? AND t.title = ?
	`), itemTitle, tagTitle)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("link %q to %q: %w", tagTitle, itemTitle, catalog.ErrNotFound)
	}
	return nil
}

func (t *catalogTx) RemoveTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		DELETE FROM meme_tags
		WHERE meme_id IN (SELECT id FROM memes WHERE title = ?)
		AND tag_id IN (SELECT id FROM tags WHERE title = ?)
	`), itemTitle, tagTitle)
	return err
}

func (t *catalogTx) IncrementTagCount(ctx context.Context, tagTitle string) error {
	res, err := t.tx.ExecContext(ctx, t.q(`UPDATE tags SET usage_count = usage_count + 1 WHERE title = ?`), tagTitle)
	if err != nil {
		return err
	}
	return expectRow(res, "tag", tagTitle)
}

func (t *catalogTx) DecrementTagCount(ctx context.Context, tagTitle string) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		UPDATE tags SET usage_count = usage_count - 1 WHERE title = ? AND usage_count > 0
	`), tagTitle)
	return err
}

func memeWriteError(title string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("meme %q: %w", title, catalog.ErrDuplicateTitle)
	}
	return err
}

func expectRow(res sql.Result, what, title string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", what, title, catalog.ErrNotFound)
	}
	return nil
}
