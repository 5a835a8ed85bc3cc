package commands

import (
	"encoding/json"
	"time"

	"concilium/contexts/council-records/document-engine/ports"
)

func newDocumentEnvelope(
	eventID string,
	eventType string,
	documentID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Lifecycle events are partitioned per document so consumers replay a
	// document's history in commit order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "document-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "document_id",
		PartitionKey:     documentID,
		Data:             payload,
	}, nil
}
