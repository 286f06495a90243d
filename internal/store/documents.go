package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const documentColumns = "id, entity_id, kind, generator, body, concise, key_topics, takeaways, comprehensive, artifact_path, file_mtime, content_hash, size, generated_at"

func scanDocument(s scanner) (*Document, error) {
	var (
		d         Document
		mtime     sql.NullString
		generated sql.NullString
	)
	if err := s.Scan(&d.ID, &d.EntityID, &d.Kind, &d.Generator, &d.Body, &d.Concise, &d.KeyTopics,
		&d.Takeaways, &d.Comprehensive, &d.ArtifactPath, &mtime, &d.ContentHash, &d.Size, &generated); err != nil {
		return nil, err
	}
	d.FileMTime = parseNullTime(mtime)
	d.GeneratedAt = parseNullTime(generated)
	return &d, nil
}

// DocumentExists reports whether any document exists for the
// (entity, kind, generator) triple.
func (q *Queries) DocumentExists(ctx context.Context, entityID, kind, generator string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE entity_id = ? AND kind = ? AND generator = ?`,
		entityID, kind, generator).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check document %s/%s/%s: %w", entityID, kind, generator, err)
	}
	return n > 0, nil
}

// InsertDocument stores a new document and returns its id.
// Returns ErrDuplicate when the uniqueness key is already taken.
func (q *Queries) InsertDocument(ctx context.Context, d Document) (int64, error) {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO documents (entity_id, kind, generator, body, concise, key_topics, takeaways,
            comprehensive, artifact_path, file_mtime, content_hash, size, generated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EntityID, d.Kind, d.Generator, d.Body, d.Concise, d.KeyTopics, d.Takeaways,
		d.Comprehensive, d.ArtifactPath, nullableTime(d.FileMTime), d.ContentHash, d.Size,
		formatTime(d.GeneratedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("document %s/%s/%s: %w", d.EntityID, d.Kind, d.Generator, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return res.LastInsertId()
}

// GetArtifactDocument fetches the document synced from one artifact file.
// Returns ErrNotFound when absent.
func (q *Queries) GetArtifactDocument(ctx context.Context, entityID, kind, path string) (*Document, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE entity_id = ? AND kind = ? AND artifact_path = ?`,
		entityID, kind, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%s at %s: %w", entityID, kind, path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// UpdateArtifactBody overwrites the content of an artifact document.
func (q *Queries) UpdateArtifactBody(ctx context.Context, id int64, body string, mtime time.Time, hash string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE documents SET body = ?, size = ?, file_mtime = ?, content_hash = ?, generated_at = ?
         WHERE id = ?`,
		body, len(body), nullableTime(mtime), hash, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	return nil
}

// EntityDocuments lists every document of an entity, oldest first.
func (q *Queries) EntityDocuments(ctx context.Context, entityID string) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE entity_id = ? ORDER BY id`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Counts reports the number of rows per table.
type Counts struct {
	Entities    int
	Collections int
	Documents   int
}

// Counts returns current row counts.
func (q *Queries) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM entities), (SELECT COUNT(1) FROM collections), (SELECT COUNT(1) FROM documents)`,
	).Scan(&c.Entities, &c.Collections, &c.Documents)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
