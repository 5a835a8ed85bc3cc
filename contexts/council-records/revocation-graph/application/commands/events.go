package commands

import (
	"encoding/json"
	"time"

	"concilium/contexts/council-records/revocation-graph/domain/entities"
	"concilium/contexts/council-records/revocation-graph/ports"
)

func newRevocationEnvelope(
	eventID string,
	eventType string,
	revocation entities.Revocation,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	// Edges partition by the original resolution so all revocations against
	// one document replay in order.
	payload, err := json.Marshal(map[string]any{
		"revocation_id":          revocation.RevocationID,
		"original_resolution_id": revocation.OriginalResolutionID,
		"revoking_resolution_id": revocation.RevokingResolutionID,
		"scope":                  string(revocation.Scope),
		"affected_articles":      revocation.AffectedArticles,
		"reason":                 revocation.Reason,
		"effective_date":         revocation.EffectiveDate.Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "revocation-graph",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "original_resolution_id",
		PartitionKey:     revocation.OriginalResolutionID,
		Data:             payload,
	}, nil
}
