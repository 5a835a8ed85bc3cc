package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"concilium/contexts/council-records/voting-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	"concilium/contexts/council-records/voting-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store implements every voting-engine port in memory for tests and local
// wiring. Ballot identity is (resolution_id, voter_id).
type Store struct {
	mu sync.RWMutex

	ballots     map[string]entities.Ballot
	resolutions map[string]ports.ResolutionProjection
	rosters     map[string][]string
	outbox      map[string]outboxRecord
}

func NewStore(seed []entities.Ballot) *Store {
	ballots := make(map[string]entities.Ballot, len(seed))
	for _, ballot := range seed {
		ballots[ballot.BallotID] = ballot
	}
	return &Store{
		ballots:     ballots,
		resolutions: make(map[string]ports.ResolutionProjection),
		rosters:     make(map[string][]string),
		outbox:      make(map[string]outboxRecord),
	}
}

func (s *Store) SetResolution(projection ports.ResolutionProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[strings.TrimSpace(projection.ResolutionID)] = ports.ResolutionProjection{
		ResolutionID: strings.TrimSpace(projection.ResolutionID),
		Status:       strings.TrimSpace(projection.Status),
	}
}

func (s *Store) SetRoster(resolutionID string, voterIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosters[strings.TrimSpace(resolutionID)] = append([]string(nil), voterIDs...)
}

func (s *Store) SaveBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[strings.TrimSpace(ballot.BallotID)] = ballot
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (s *Store) GetBallotByIdentity(
	_ context.Context,
	resolutionID string,
	voterID string,
) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolutionID = strings.TrimSpace(resolutionID)
	voterID = strings.TrimSpace(voterID)
	for _, ballot := range s.ballots {
		if ballot.ResolutionID == resolutionID && ballot.VoterID == voterID {
			return ballot, true, nil
		}
	}
	return entities.Ballot{}, false, nil
}

func (s *Store) ListBallotsByResolution(_ context.Context, resolutionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.ResolutionID == strings.TrimSpace(resolutionID) {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) GetResolution(_ context.Context, resolutionID string) (ports.ResolutionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.resolutions[strings.TrimSpace(resolutionID)]
	if !ok {
		return ports.ResolutionProjection{}, domainerrors.ErrResolutionNotFound
	}
	return item, nil
}

func (s *Store) RosterFor(_ context.Context, resolutionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roster, ok := s.rosters[strings.TrimSpace(resolutionID)]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), roster...), nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
