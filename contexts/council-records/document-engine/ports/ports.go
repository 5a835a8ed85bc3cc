package ports

import (
	"context"
	"encoding/json"
	"time"

	"concilium/contexts/council-records/document-engine/domain/entities"
)

type DocumentRepository interface {
	CreateDocument(ctx context.Context, document entities.Document) error
	GetDocument(ctx context.Context, documentID string) (entities.Document, error)
	// GetDocumentForUpdate acquires a write lock on the document row for the
	// duration of the surrounding transaction.
	GetDocumentForUpdate(ctx context.Context, documentID string) (entities.Document, error)
	UpdateDocument(ctx context.Context, document entities.Document) error
}

type VersionRepository interface {
	SaveSnapshot(ctx context.Context, snapshot entities.VersionSnapshot) error
	GetSnapshot(ctx context.Context, documentID string, versionNumber int) (entities.VersionSnapshot, error)
	ListSnapshots(ctx context.Context, documentID string) ([]entities.VersionSnapshot, error)
}

type ReviewRepository interface {
	SaveComment(ctx context.Context, comment entities.ReviewComment) error
	GetComment(ctx context.Context, commentID string) (entities.ReviewComment, error)
	ListCommentsByDocument(ctx context.Context, documentID string) ([]entities.ReviewComment, error)
	PendingCount(ctx context.Context, documentID string) (int, error)
}

type PublicationRepository interface {
	SavePublication(ctx context.Context, record entities.PublicationRecord) error
	ListPublicationsByDocument(ctx context.Context, documentID string) ([]entities.PublicationRecord, error)
	ListPublications(ctx context.Context, limit int) ([]entities.PublicationRecord, error)
}

// Transactor serializes multi-write operations on a single document. The
// callback runs with a transactional context; returning an error rolls back
// every write issued under it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditEntry mirrors the external audit log contract. DedupKey makes
// at-least-once appends idempotent on the collaborator side.
type AuditEntry struct {
	DedupKey    string
	ActorID     string
	Action      string
	EntityKind  string
	EntityID    string
	BeforeState string
	AfterState  string
	OccurredAt  time.Time
}

type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// VoteResultProjection is the slice of the tally the lifecycle needs to gate
// resolution approval.
type VoteResultProjection struct {
	ResolutionID string
	Outcome      string
	QuorumMet    bool
}

type VoteResultReader interface {
	ResultFor(ctx context.Context, resolutionID string) (VoteResultProjection, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
