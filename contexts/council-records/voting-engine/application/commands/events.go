package commands

import (
	"encoding/json"
	"time"

	"concilium/contexts/council-records/voting-engine/ports"
)

func newVotingEnvelope(
	eventID string,
	eventType string,
	resolutionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Ballot events are partitioned by resolution so tallies downstream see
	// a stable order per resolution.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "resolution_id",
		PartitionKey:     resolutionID,
		Data:             payload,
	}, nil
}
