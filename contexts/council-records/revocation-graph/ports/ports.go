package ports

import (
	"context"
	"encoding/json"
	"time"

	"concilium/contexts/council-records/revocation-graph/domain/entities"
)

type RevocationRepository interface {
	SaveRevocation(ctx context.Context, revocation entities.Revocation) error
	// GetTotalRevocation reports whether a total edge already exists against
	// the original resolution.
	GetTotalRevocation(ctx context.Context, originalResolutionID string) (entities.Revocation, bool, error)
	ListByOriginal(ctx context.Context, originalResolutionID string) ([]entities.Revocation, error)
	ListByRevoker(ctx context.Context, revokingResolutionID string) ([]entities.Revocation, error)
}

// ResolutionProjection is the lifecycle status slice the graph needs for
// eligibility checks.
type ResolutionProjection struct {
	ResolutionID string
	Status       string
}

type ResolutionReader interface {
	GetResolution(ctx context.Context, resolutionID string) (ResolutionProjection, error)
}

// ResolutionContentReader reads the articles of a resolution's current
// version for the effective-text overlay.
type ResolutionContentReader interface {
	ArticlesFor(ctx context.Context, resolutionID string) ([]entities.ArticleText, error)
}

// LifecycleRevoker is the document engine's revoke operation seen from this
// module. RevokeResolution joins the transaction carried by the context so
// the edge and the status change commit together; ConfirmRevocation is called
// once that transaction has committed and appends the downstream audit trail,
// which must never hold the recording transaction open.
type LifecycleRevoker interface {
	RevokeResolution(ctx context.Context, resolutionID string, actorID string, reason string) error
	ConfirmRevocation(ctx context.Context, resolutionID string, actorID string) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
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
