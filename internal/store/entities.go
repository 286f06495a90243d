package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const entityColumns = "id, title, upload_date, transcript_timestamped, transcript_plain, size_timestamped, size_plain, last_modified"

func scanEntity(s scanner) (*Entity, error) {
	var (
		e       Entity
		lastMod sql.NullString
	)
	if err := s.Scan(&e.ID, &e.Title, &e.UploadDate, &e.TranscriptTimestamped, &e.TranscriptPlain,
		&e.SizeTimestamped, &e.SizePlain, &lastMod); err != nil {
		return nil, err
	}
	e.LastModified = parseNullTime(lastMod)
	return &e, nil
}

// InsertEntityIfAbsent inserts e unless a row with its ID exists.
// Existing rows are never modified. Reports whether a row was inserted.
func (q *Queries) InsertEntityIfAbsent(ctx context.Context, e Entity) (bool, error) {
	if e.LastModified.IsZero() {
		e.LastModified = time.Now()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO NOTHING`,
		e.ID, e.Title, e.UploadDate, e.TranscriptTimestamped, e.TranscriptPlain,
		e.SizeTimestamped, e.SizePlain, formatTime(e.LastModified),
	)
	if err != nil {
		return false, fmt.Errorf("insert entity %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpsertEntity inserts e or replaces every field of the existing row.
// Used when a transcript is fetched for an entity that had none.
func (q *Queries) UpsertEntity(ctx context.Context, e Entity) error {
	if e.LastModified.IsZero() {
		e.LastModified = time.Now()
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            upload_date = excluded.upload_date,
            transcript_timestamped = excluded.transcript_timestamped,
            transcript_plain = excluded.transcript_plain,
            size_timestamped = excluded.size_timestamped,
            size_plain = excluded.size_plain,
            last_modified = excluded.last_modified`,
		e.ID, e.Title, e.UploadDate, e.TranscriptTimestamped, e.TranscriptPlain,
		e.SizeTimestamped, e.SizePlain, formatTime(e.LastModified),
	)
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", e.ID, err)
	}
	return nil
}

// GetEntity fetches one entity. Returns ErrNotFound when absent.
func (q *Queries) GetEntity(ctx context.Context, id string) (*Entity, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %s: %w", id, err)
	}
	return e, nil
}

// EntityExists reports whether an entity row exists.
func (q *Queries) EntityExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entities WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check entity %s: %w", id, err)
	}
	return n > 0, nil
}

// HasTranscript reports whether the entity exists with a non-empty plain
// transcript.
func (q *Queries) HasTranscript(ctx context.Context, id string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entities WHERE id = ? AND transcript_plain <> ''`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check transcript %s: %w", id, err)
	}
	return n > 0, nil
}

// DeleteEntity removes an entity. Its documents and links go with it.
func (q *Queries) DeleteEntity(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	return nil
}

// CollectionEntities lists the entities linked to a collection name.
func (q *Queries) CollectionEntities(ctx context.Context, name string, opts ListOptions) ([]Entity, error) {
	var (
		sb   strings.Builder
		args = []any{name}
	)
	sb.WriteString(`SELECT e.id, e.title, e.upload_date, e.transcript_timestamped, e.transcript_plain,
        e.size_timestamped, e.size_plain, e.last_modified
        FROM entities e JOIN collections c ON c.entity_id = e.id
        WHERE c.name = ?`)
	if opts.Search != "" {
		sb.WriteString(` AND e.title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}

	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	switch opts.Sort {
	case "title":
		sb.WriteString(` ORDER BY e.title COLLATE NOCASE ` + dir + `, e.id`)
	case "date":
		sb.WriteString(` ORDER BY e.upload_date ` + dir + `, e.id`)
	default:
		sb.WriteString(` ORDER BY c.id ` + dir)
	}
	if opts.Limit > 0 {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list collection entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
