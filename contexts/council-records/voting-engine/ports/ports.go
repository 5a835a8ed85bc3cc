package ports

import (
	"context"
	"encoding/json"
	"time"

	"concilium/contexts/council-records/voting-engine/domain/entities"
)

type BallotRepository interface {
	SaveBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	GetBallotByIdentity(ctx context.Context, resolutionID string, voterID string) (entities.Ballot, bool, error)
	ListBallotsByResolution(ctx context.Context, resolutionID string) ([]entities.Ballot, error)
}

// ResolutionProjection is the slice of document state the voting engine needs
// to decide whether a ballot may still be cast.
type ResolutionProjection struct {
	ResolutionID string
	Status       string
}

type ResolutionReader interface {
	GetResolution(ctx context.Context, resolutionID string) (ResolutionProjection, error)
}

// EligibleVoterRoster is supplied by an external membership/term-of-office
// service. The tally treats it as a pure lookup.
type EligibleVoterRoster interface {
	RosterFor(ctx context.Context, resolutionID string) ([]string, error)
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
