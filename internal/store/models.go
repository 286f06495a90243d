package store

import "time"

// UnknownDate marks an entity whose upload date is not known.
const UnknownDate = "UnknownDate"

// KindSummary is the kind of documents produced by the generation pipeline.
const KindSummary = "summary"

// Entity is one transcript subject.
type Entity struct {
	ID                    string
	Title                 string
	UploadDate            string
	TranscriptTimestamped string
	TranscriptPlain       string
	SizeTimestamped       int
	SizePlain             int
	LastModified          time.Time
}

// Collection links one entity to a named group.
type Collection struct {
	ID           int64
	Name         string
	ExternalKey  string
	EntityID     string
	LastModified time.Time
}

// CollectionSummary aggregates the rows sharing a name.
type CollectionSummary struct {
	Name        string
	ExternalKey string
	Entities    int
}

// Document is a derived document. Artifact documents carry Body and the
// path of the file they were synced from; generated documents carry the
// four sections and an empty ArtifactPath.
type Document struct {
	ID            int64
	EntityID      string
	Kind          string
	Generator     string
	Body          string
	Concise       string
	KeyTopics     string
	Takeaways     string
	Comprehensive string
	ArtifactPath  string
	FileMTime     time.Time
	ContentHash   string
	Size          int
	GeneratedAt   time.Time
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Run is the durable record of one background task.
type Run struct {
	ID         string
	Kind       string
	Scope      string
	Status     RunStatus
	Processed  int
	Total      int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
	Errors     []string
}

// Done reports whether the run reached a terminal status.
func (r Run) Done() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// ListOptions filter and page entity listings.
type ListOptions struct {
	Search string // case-insensitive title substring
	Sort   string // "title" or "date"; empty keeps insertion order
	Desc   bool
	Limit  int
	Offset int
}
