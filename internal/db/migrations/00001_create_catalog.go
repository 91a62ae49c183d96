package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateCatalog, downCreateCatalog)
}

// The id columns auto-increment differently per driver, so the catalog
// tables are created from Go rather than a shared SQL file.
func catalogDDL() []string {
	switch dialect {
	case "postgres":
		return []string{
			`CREATE TABLE IF NOT EXISTS memes (
    id         BIGSERIAL PRIMARY KEY,
    title      VARCHAR(50) NOT NULL UNIQUE,
    likes      INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
    owner      VARCHAR(64) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS tags (
    id          BIGSERIAL PRIMARY KEY,
    title       VARCHAR(20) NOT NULL UNIQUE,
    usage_count INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
    created_at  TIMESTAMPTZ NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS meme_tags (
    meme_id BIGINT NOT NULL REFERENCES memes(id) ON DELETE CASCADE,
    tag_id  BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (meme_id, tag_id)
)`,
			`CREATE INDEX IF NOT EXISTS meme_tags_tag_idx ON meme_tags (tag_id)`,
		}
	case "mysql":
		return []string{
			`CREATE TABLE IF NOT EXISTS memes (
    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
    title      VARCHAR(50) NOT NULL UNIQUE,
    likes      INT NOT NULL DEFAULT 0,
    owner      VARCHAR(64) NOT NULL DEFAULT '',
    created_at TIMESTAMP(6) NOT NULL,
    updated_at TIMESTAMP(6) NOT NULL
) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS tags (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    title       VARCHAR(20) NOT NULL UNIQUE,
    usage_count INT NOT NULL DEFAULT 0,
    created_at  TIMESTAMP(6) NOT NULL
) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS meme_tags (
    meme_id BIGINT NOT NULL,
    tag_id  BIGINT NOT NULL,
    PRIMARY KEY (meme_id, tag_id),
    INDEX meme_tags_tag_idx (tag_id),
    FOREIGN KEY (meme_id) REFERENCES memes(id) ON DELETE CASCADE,
    FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
		}
	default: // sqlite3
		return []string{
			`CREATE TABLE IF NOT EXISTS memes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT NOT NULL UNIQUE,
    likes      INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
    owner      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS tags (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL UNIQUE,
    usage_count INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
    created_at  TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS meme_tags (
    meme_id INTEGER NOT NULL REFERENCES memes(id) ON DELETE CASCADE,
    tag_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (meme_id, tag_id)
)`,
			`CREATE INDEX IF NOT EXISTS meme_tags_tag_idx ON meme_tags (tag_id)`,
		}
	}
}

func upCreateCatalog(ctx context.Context, tx *sql.Tx) error {
	for _, ddl := range catalogDDL() {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create catalog tables: %w", err)
		}
	}
	return nil
}

func downCreateCatalog(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"meme_tags", "tags", "memes"} {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return err
		}
	}
	return nil
}
