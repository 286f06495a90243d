package caption

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Defaults applied to artifacts that omit optional fields.
const (
	DefaultTitle = "Untitled"
	UnknownDate  = "UnknownDate"
)

// Artifact is the JSON document stored as <collection>/transcripts/<id>.json.
type Artifact struct {
	ID         string  `json:"video_id"`
	Title      string  `json:"title"`
	UploadDate string  `json:"upload_date"`
	Transcript []Entry `json:"transcript"`
}

// artifactJSON accepts the legacy "id" key alongside "video_id".
type artifactJSON struct {
	VideoID    string  `json:"video_id"`
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	UploadDate string  `json:"upload_date"`
	Transcript []Entry `json:"transcript"`
}

// DecodeArtifact reads a transcript artifact and applies defaults.
// Returns ErrMissingID when neither "video_id" nor "id" is set.
func DecodeArtifact(r io.Reader) (Artifact, error) {
	var raw artifactJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Artifact{}, fmt.Errorf("decode transcript artifact: %w", err)
	}

	a := Artifact{
		ID:         strings.TrimSpace(raw.VideoID),
		Title:      raw.Title,
		UploadDate: raw.UploadDate,
		Transcript: raw.Transcript,
	}
	if a.ID == "" {
		a.ID = strings.TrimSpace(raw.ID)
	}
	if a.ID == "" {
		return Artifact{}, ErrMissingID
	}
	if a.Title == "" {
		a.Title = DefaultTitle
	}
	if a.UploadDate == "" {
		a.UploadDate = UnknownDate
	}
	return a, nil
}

// Encode writes the artifact as indented JSON.
func (a Artifact) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode transcript artifact: %w", err)
	}
	return nil
}

// CheckName returns ErrUnsafeName when name is empty, "." or "..", or
// contains a path separator.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("%q: %w", name, ErrUnsafeName)
	}
	return nil
}
