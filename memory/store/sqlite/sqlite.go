// Package sqlite persists memory stores to a local SQLite database.
//
// It is a persistence collaborator, not a Store: items travel through the
// ToDocument/ItemFromDocument contract as JSON documents keyed by
// (store name, item id), so any store kind can be snapshotted and
// restored without the collaborator knowing its field layout.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opencortex/mnemo-go-sdk/memory"
)

// DB wraps the SQLite handle used for store snapshots.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at the given path, creating parent
// directories as needed.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stores (
		name     TEXT PRIMARY KEY,
		kind     TEXT NOT NULL,
		metadata TEXT,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		store      TEXT NOT NULL REFERENCES stores(name),
		id         TEXT NOT NULL,
		document   TEXT NOT NULL,
		updated_at TEXT,
		PRIMARY KEY (store, id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_store ON items(store);
	`
	_, err := d.db.Exec(schema)
	return err
}

// SaveStore snapshots the store: its descriptor plus every item's
// document, replacing any prior snapshot under the same name.
func (d *DB) SaveStore(ctx context.Context, s memory.Store) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	desc := s.ToDocument()
	metaJSON, err := json.Marshal(desc["metadata"])
	if err != nil {
		return fmt.Errorf("marshal store metadata: %w", err)
	}
	now := time.Now().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO stores (name, kind, metadata, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind,
			metadata = excluded.metadata, saved_at = excluded.saved_at`,
		s.Name(), string(s.Kind()), string(metaJSON), now)
	if err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE store = ?`, s.Name()); err != nil {
		return fmt.Errorf("clear old items: %w", err)
	}

	items := s.List()
	for _, item := range items {
		doc, err := json.Marshal(item.ToDocument())
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", item.ID(), err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (store, id, document, updated_at) VALUES (?, ?, ?, ?)`,
			s.Name(), item.ID(), string(doc), item.UpdatedAt().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[SQLITE] Saved store %q (%d items)", s.Name(), len(items))
	return nil
}

// LoadStore restores a snapshot into the store: store-level metadata is
// reapplied and every saved document is rebuilt via ItemFromDocument and
// added. Returns the number of items loaded; a store with no snapshot
// loads zero items without error.
func (d *DB) LoadStore(ctx context.Context, s memory.Store) (int, error) {
	var metaJSON sql.NullString
	err := d.db.QueryRowContext(ctx,
		`SELECT metadata FROM stores WHERE name = ?`, s.Name()).Scan(&metaJSON)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read store row: %w", err)
	}

	if metaJSON.Valid && metaJSON.String != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err == nil {
			for k, v := range meta {
				s.SetMetadata(k, v)
			}
		}
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, document FROM items WHERE store = ? ORDER BY id`, s.Name())
	if err != nil {
		return 0, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var id, docJSON string
		if err := rows.Scan(&id, &docJSON); err != nil {
			return loaded, fmt.Errorf("scan item: %w", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			log.Printf("[SQLITE] Skipping corrupt item %s: %v", id, err)
			continue
		}
		item, err := memory.ItemFromDocument(s.Kind(), doc)
		if err != nil {
			return loaded, fmt.Errorf("rebuild item %s: %w", id, err)
		}
		s.Add(item)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("iterate items: %w", err)
	}
	log.Printf("[SQLITE] Loaded store %q (%d items)", s.Name(), loaded)
	return loaded, nil
}

// DeleteStore drops the snapshot under the given name.
func (d *DB) DeleteStore(ctx context.Context, name string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE store = ?`, name); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stores WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return tx.Commit()
}

// SavedStores lists the snapshot names and kinds currently in the
// database.
func (d *DB) SavedStores(ctx context.Context) (map[string]memory.Kind, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, kind FROM stores ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()
	out := make(map[string]memory.Kind)
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		out[name] = memory.Kind(kind)
	}
	return out, rows.Err()
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
