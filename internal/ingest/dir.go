package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alnah/go-summarizeme/internal/caption"
)

// Compile-time interface compliance checks.
var (
	_ Lister  = (*DirSource)(nil)
	_ Fetcher = (*DirSource)(nil)
)

// DirSource serves captions from a directory laid out as
// <dir>/<key>/<id>.json (transcript artifacts) or <dir>/<key>/<id>.srt.
type DirSource struct {
	dir string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// ListCollectionEntities lists the caption files under <dir>/<key> in
// name order. JSON artifacts supply their title and date.
func (d *DirSource) ListCollectionEntities(_ context.Context, key string) ([]Listing, error) {
	entries, err := os.ReadDir(filepath.Join(d.dir, key))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Listing
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".json" && ext != ".srt" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if seen[id] {
			continue
		}
		seen[id] = true

		l := Listing{ID: id}
		if ext == ".json" {
			a, err := readArtifact(filepath.Join(d.dir, key, e.Name()))
			if err != nil {
				return nil, err
			}
			l.Title, l.UploadDate = a.Title, a.UploadDate
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Listing) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// FetchTranscript finds <id>.json or <id>.srt under any key directory.
func (d *DirSource) FetchTranscript(_ context.Context, entityID string) ([]caption.Entry, error) {
	for _, ext := range []string{".json", ".srt"} {
		matches, err := filepath.Glob(filepath.Join(d.dir, "*", entityID+ext))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if ext == ".json" {
			a, err := readArtifact(matches[0])
			if err != nil {
				return nil, err
			}
			return a.Transcript, nil
		}
		f, err := os.Open(matches[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return caption.ParseSRT(f)
	}
	return nil, ErrTranscriptUnavailable
}

func readArtifact(path string) (caption.Artifact, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return caption.Artifact{}, ErrTranscriptUnavailable
	}
	if err != nil {
		return caption.Artifact{}, err
	}
	defer f.Close()
	a, err := caption.DecodeArtifact(f)
	if err != nil {
		return caption.Artifact{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return a, nil
}
