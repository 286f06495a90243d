package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LinkCollection ensures a (name, entity) row exists. The external key is
// only written when the row is created. Reports whether a row was inserted.
func (q *Queries) LinkCollection(ctx context.Context, name, externalKey, entityID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO collections (name, external_key, entity_id, last_modified)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(name, entity_id) DO NOTHING`,
		name, externalKey, entityID, formatTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("link %s to collection %q: %w", entityID, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CollectionKey returns the external key of the named collection.
// Returns ErrNotFound when no row carries the name.
func (q *Queries) CollectionKey(ctx context.Context, name string) (string, error) {
	var key string
	err := q.db.QueryRowContext(ctx,
		`SELECT external_key FROM collections WHERE name = ? ORDER BY id LIMIT 1`, name).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("collection %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("collection key %q: %w", name, err)
	}
	return key, nil
}

// NameForKey returns the current name used by rows with the external key.
// Returns ErrNotFound when the key is unknown.
func (q *Queries) NameForKey(ctx context.Context, key string) (string, error) {
	var name string
	err := q.db.QueryRowContext(ctx,
		`SELECT name FROM collections WHERE external_key = ? ORDER BY id LIMIT 1`, key).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("collection key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("collection name for %q: %w", key, err)
	}
	return name, nil
}

// CollectionExists reports whether any row carries the name.
func (q *Queries) CollectionExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM collections WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("check collection %q: %w", name, err)
	}
	return n > 0, nil
}

// RenameCollection moves every row from oldName to newName and returns
// the number of rows updated.
func (q *Queries) RenameCollection(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE collections SET name = ?, last_modified = ? WHERE name = ?`,
		newName, formatTime(time.Now()), oldName)
	if err != nil {
		return 0, fmt.Errorf("rename collection %q: %w", oldName, err)
	}
	return res.RowsAffected()
}

// DeleteCollectionRows removes every row with the name and returns the
// entity ids those rows referenced.
func (q *Queries) DeleteCollectionRows(ctx context.Context, name string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT entity_id FROM collections WHERE name = ? ORDER BY entity_id`, name)
	if err != nil {
		return nil, fmt.Errorf("list collection rows %q: %w", name, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := q.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return nil, fmt.Errorf("delete collection %q: %w", name, err)
	}
	return ids, nil
}

// CollectionRefs counts the collection rows referencing an entity.
func (q *Queries) CollectionRefs(ctx context.Context, entityID string) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM collections WHERE entity_id = ?`, entityID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references to %s: %w", entityID, err)
	}
	return n, nil
}

// ListCollections returns one summary per distinct name, sorted by name.
func (q *Queries) ListCollections(ctx context.Context) ([]CollectionSummary, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT name, MIN(external_key), COUNT(DISTINCT entity_id)
         FROM collections GROUP BY name ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []CollectionSummary
	for rows.Next() {
		var c CollectionSummary
		if err := rows.Scan(&c.Name, &c.ExternalKey, &c.Entities); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionRows returns the raw rows carrying a name, in id order.
func (q *Queries) CollectionRows(ctx context.Context, name string) ([]Collection, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, external_key, entity_id, last_modified FROM collections WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("list collection rows %q: %w", name, err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var (
			c       Collection
			lastMod sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.ExternalKey, &c.EntityID, &lastMod); err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		c.LastModified = parseNullTime(lastMod)
		out = append(out, c)
	}
	return out, rows.Err()
}
