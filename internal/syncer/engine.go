// Package syncer reconciles the artifact tree on disk with the store.
//
// The tree holds one directory per collection. Each collection has a
// transcripts directory of <id>.json artifacts and one directory per
// derived-document kind holding <id>.md files. Entities are inserted once
// and never overwritten; derived documents are rewritten only when their
// file is newer than the stored copy. All transcripts are recorded before
// the first document.
package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alnah/go-summarizeme/internal/caption"
	"github.com/alnah/go-summarizeme/internal/estimate"
	"github.com/alnah/go-summarizeme/internal/store"
)

// Stats summarizes what one run changed.
type Stats struct {
	Collections       int
	Artifacts         int
	EntitiesInserted  int
	LinksInserted     int
	DocumentsInserted int
	DocumentsUpdated  int
	Failed            int
}

// Changed reports whether the run modified any row.
func (s Stats) Changed() bool {
	return s.EntitiesInserted+s.LinksInserted+s.DocumentsInserted+s.DocumentsUpdated > 0
}

// Engine walks an artifact root and upserts what it finds.
type Engine struct {
	store       *store.Store
	root        string
	est         estimate.Estimator
	kinds       map[string]string
	contentHash bool
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEstimator sets the estimator used for entity size fields.
func WithEstimator(est estimate.Estimator) Option {
	return func(e *Engine) {
		if est != nil {
			e.est = est
		}
	}
}

// WithKinds replaces the derived-document directory to generator map.
func WithKinds(kinds map[string]string) Option {
	return func(e *Engine) {
		e.kinds = kinds
	}
}

// WithContentHash rewrites documents whose content changed even when the
// file's modification time is not newer.
func WithContentHash(enabled bool) Option {
	return func(e *Engine) {
		e.contentHash = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over root.
func New(s *store.Store, root string, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		root:   root,
		est:    estimate.Words{},
		kinds:  DefaultKinds(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "syncer")
	return e
}

// Root returns the artifact root.
func (e *Engine) Root() string {
	return e.root
}

// collectionPlan lists the artifacts found in one collection directory.
type collectionPlan struct {
	dir         string
	transcripts []string
	documents   []documentFile
}

type documentFile struct {
	kind      string
	generator string
	path      string
}

// Run reconciles the whole tree once. Per-artifact failures are reported
// to r and skipped. Only an unreadable root or a cancelled context fail
// the run.
//
// Transcripts and links of every collection are recorded before any
// document, so a document whose entity lives in another collection is
// linked on the same run.
func (e *Engine) Run(ctx context.Context, r Reporter) (Stats, error) {
	if r == nil {
		r = nopReporter{}
	}

	plans, skipped, err := e.plan()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Collections: len(plans)}
	total := 0
	for _, p := range plans {
		total += len(p.transcripts) + len(p.documents)
	}
	r.SetTotal(total)
	e.logger.Info("sync started", "root", e.root, "collections", len(plans), "artifacts", total)

	for _, s := range skipped {
		e.fail(r, &stats, filepath.Join(e.root, s.dir), s.err)
	}

	for _, p := range plans {
		name, key, err := e.resolveCollection(ctx, p.dir)
		if err != nil {
			return stats, fmt.Errorf("resolve collection %q: %w", p.dir, err)
		}

		for _, file := range p.transcripts {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Artifacts++
			if err := e.syncTranscript(ctx, name, key, file, &stats); err != nil {
				e.fail(r, &stats, file, err)
			}
			r.Advance()
		}
	}

	for _, p := range plans {
		for _, doc := range p.documents {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Artifacts++
			if err := e.syncDocument(ctx, doc, &stats); err != nil {
				e.fail(r, &stats, doc.path, err)
			}
			r.Advance()
		}
	}

	e.logger.Info("sync finished",
		"artifacts", stats.Artifacts,
		"entities_inserted", stats.EntitiesInserted,
		"links_inserted", stats.LinksInserted,
		"documents_inserted", stats.DocumentsInserted,
		"documents_updated", stats.DocumentsUpdated,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (e *Engine) fail(r Reporter, stats *Stats, file string, err error) {
	stats.Failed++
	rel := e.rel(file)
	e.logger.Warn("artifact skipped", "path", rel, "error", err)
	r.Record(fmt.Errorf("%s: %w", rel, err))
}

// skippedCollection is a collection directory that could not be listed.
type skippedCollection struct {
	dir string
	err error
}

// plan enumerates collections and their artifacts in sorted order.
// Collections whose directories cannot be listed are returned separately.
func (e *Engine) plan() ([]collectionPlan, []skippedCollection, error) {
	info, err := os.Stat(e.root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRootMissing, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrRootMissing, e.root)
	}
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRootMissing, err)
	}

	var (
		plans   []collectionPlan
		skipped []skippedCollection
	)
	for _, entry := range entries {
		if !entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		p, err := e.planCollection(entry.Name())
		if err != nil {
			skipped = append(skipped, skippedCollection{dir: entry.Name(), err: err})
			continue
		}
		plans = append(plans, p)
	}
	return plans, skipped, nil
}

func (e *Engine) planCollection(dir string) (collectionPlan, error) {
	p := collectionPlan{dir: dir}
	base := filepath.Join(e.root, dir)

	subdirs, err := os.ReadDir(base)
	if err != nil {
		return p, err
	}

	transcripts, err := listFiles(filepath.Join(base, TranscriptsDir), ".json")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return p, err
	}
	p.transcripts = transcripts

	for _, sub := range subdirs {
		if !sub.IsDir() || hidden(sub.Name()) || sub.Name() == TranscriptsDir {
			continue
		}
		generator, ok := generatorFor(e.kinds, sub.Name())
		if !ok {
			e.logger.Debug("unknown kind directory", "collection", dir, "dir", sub.Name())
			continue
		}
		files, err := listFiles(filepath.Join(base, sub.Name()), ".md")
		if err != nil {
			return p, err
		}
		for _, f := range files {
			p.documents = append(p.documents, documentFile{kind: sub.Name(), generator: generator, path: f})
		}
	}
	return p, nil
}

// resolveCollection picks the name and external key used for a collection
// directory. A directory matching an existing name links there with that
// name's key. A directory matching the key of a renamed collection follows
// the rename. Otherwise the directory name is both name and key.
func (e *Engine) resolveCollection(ctx context.Context, dir string) (name, key string, err error) {
	key, err = e.store.CollectionKey(ctx, dir)
	if err == nil {
		return dir, key, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", "", err
	}

	name, err = e.store.NameForKey(ctx, dir)
	if err == nil {
		return name, dir, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", "", err
	}
	return dir, dir, nil
}

func (e *Engine) syncTranscript(ctx context.Context, name, key, file string, stats *Stats) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	artifact, err := caption.DecodeArtifact(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	stamped, plain := caption.Normalize(artifact.Transcript)
	entity := store.Entity{
		ID:                    artifact.ID,
		Title:                 artifact.Title,
		UploadDate:            artifact.UploadDate,
		TranscriptTimestamped: stamped,
		TranscriptPlain:       plain,
		SizeTimestamped:       e.est.Estimate(stamped),
		SizePlain:             e.est.Estimate(plain),
	}

	var inserted, linked bool
	err = e.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		if inserted, err = q.InsertEntityIfAbsent(ctx, entity); err != nil {
			return err
		}
		linked, err = q.LinkCollection(ctx, name, key, entity.ID)
		return err
	})
	if err != nil {
		return err
	}
	if inserted {
		stats.EntitiesInserted++
	}
	if linked {
		stats.LinksInserted++
	}
	return nil
}

func (e *Engine) syncDocument(ctx context.Context, doc documentFile, stats *Stats) error {
	info, err := os.Stat(doc.path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(doc.path)
	if err != nil {
		return err
	}
	body := string(data)
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	mtime := info.ModTime()
	entityID := strings.TrimSuffix(filepath.Base(doc.path), filepath.Ext(doc.path))
	artifactPath := e.rel(doc.path)

	var inserted, updated bool
	err = e.store.WithTx(ctx, func(q *store.Queries) error {
		exists, err := q.EntityExists(ctx, entityID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s: %w", entityID, ErrEntityMissing)
		}

		current, err := q.GetArtifactDocument(ctx, entityID, doc.kind, artifactPath)
		if errors.Is(err, store.ErrNotFound) {
			_, err = q.InsertDocument(ctx, store.Document{
				EntityID:     entityID,
				Kind:         doc.kind,
				Generator:    doc.generator,
				Body:         body,
				ArtifactPath: artifactPath,
				FileMTime:    mtime,
				ContentHash:  hash,
				Size:         len(body),
			})
			if errors.Is(err, store.ErrDuplicate) {
				return nil
			}
			inserted = err == nil
			return err
		}
		if err != nil {
			return err
		}

		stale := mtime.After(current.FileMTime)
		if e.contentHash && hash != current.ContentHash {
			stale = true
		}
		if !stale {
			return nil
		}
		updated = true
		return q.UpdateArtifactBody(ctx, current.ID, body, mtime, hash)
	})
	if err != nil {
		return err
	}
	if inserted {
		stats.DocumentsInserted++
	}
	if updated {
		stats.DocumentsUpdated++
	}
	return nil
}

// rel returns file relative to the root, slash-separated.
func (e *Engine) rel(file string) string {
	r, err := filepath.Rel(e.root, file)
	if err != nil {
		return file
	}
	return path.Clean(filepath.ToSlash(r))
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// listFiles returns the regular, non-hidden files in dir with the given
// extension, sorted by name.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || hidden(entry.Name()) || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
