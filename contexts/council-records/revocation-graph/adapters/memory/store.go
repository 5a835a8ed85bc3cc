package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store implements every revocation-graph port in memory for tests and local
// wiring, including a stand-in lifecycle revoker that flips the resolution
// projection to revoked.
type Store struct {
	mu sync.RWMutex

	revocations map[string]entities.Revocation
	resolutions map[string]ports.ResolutionProjection
	articles    map[string][]entities.ArticleText
	outbox      map[string]outboxRecord
	revoked     []string
	confirmed   []string
	confirmErr  error
}

func NewStore(seed []entities.Revocation) *Store {
	revocations := make(map[string]entities.Revocation, len(seed))
	for _, revocation := range seed {
		revocations[revocation.RevocationID] = revocation
	}
	return &Store{
		revocations: revocations,
		resolutions: make(map[string]ports.ResolutionProjection),
		articles:    make(map[string][]entities.ArticleText),
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

func (s *Store) SetArticles(resolutionID string, articles []entities.ArticleText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[strings.TrimSpace(resolutionID)] = append([]entities.ArticleText(nil), articles...)
}

// RevokedResolutions lists the resolutions the stand-in lifecycle revoker was
// invoked for, in call order.
func (s *Store) RevokedResolutions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.revoked...)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) SaveRevocation(_ context.Context, revocation entities.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	revocationID := strings.TrimSpace(revocation.RevocationID)
	if _, ok := s.revocations[revocationID]; ok {
		return domainerrors.ErrConflict
	}
	if revocation.Scope == entities.RevocationScopeTotal {
		for _, existing := range s.revocations {
			if existing.OriginalResolutionID == revocation.OriginalResolutionID &&
				existing.Scope == entities.RevocationScopeTotal {
				return domainerrors.ErrAlreadyTotallyRevoked
			}
		}
	}
	s.revocations[revocationID] = revocation
	return nil
}

func (s *Store) GetTotalRevocation(_ context.Context, originalResolutionID string) (entities.Revocation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	originalResolutionID = strings.TrimSpace(originalResolutionID)
	for _, revocation := range s.revocations {
		if revocation.OriginalResolutionID == originalResolutionID &&
			revocation.Scope == entities.RevocationScopeTotal {
			return revocation, true, nil
		}
	}
	return entities.Revocation{}, false, nil
}

func (s *Store) ListByOriginal(_ context.Context, originalResolutionID string) ([]entities.Revocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	originalResolutionID = strings.TrimSpace(originalResolutionID)
	items := make([]entities.Revocation, 0)
	for _, revocation := range s.revocations {
		if revocation.OriginalResolutionID == originalResolutionID {
			items = append(items, revocation)
		}
	}
	sortRevocations(items)
	return items, nil
}

func (s *Store) ListByRevoker(_ context.Context, revokingResolutionID string) ([]entities.Revocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revokingResolutionID = strings.TrimSpace(revokingResolutionID)
	items := make([]entities.Revocation, 0)
	for _, revocation := range s.revocations {
		if revocation.RevokingResolutionID == revokingResolutionID {
			items = append(items, revocation)
		}
	}
	sortRevocations(items)
	return items, nil
}

func (s *Store) GetResolution(_ context.Context, resolutionID string) (ports.ResolutionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projection, ok := s.resolutions[strings.TrimSpace(resolutionID)]
	if !ok {
		return ports.ResolutionProjection{}, domainerrors.ErrResolutionNotFound
	}
	return projection, nil
}

func (s *Store) ArticlesFor(_ context.Context, resolutionID string) ([]entities.ArticleText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	articles, ok := s.articles[strings.TrimSpace(resolutionID)]
	if !ok {
		return nil, domainerrors.ErrResolutionNotFound
	}
	return append([]entities.ArticleText(nil), articles...), nil
}

func (s *Store) RevokeResolution(_ context.Context, resolutionID string, _ string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolutionID = strings.TrimSpace(resolutionID)
	projection, ok := s.resolutions[resolutionID]
	if !ok {
		return domainerrors.ErrResolutionNotFound
	}
	projection.Status = "revoked"
	s.resolutions[resolutionID] = projection
	s.revoked = append(s.revoked, resolutionID)
	return nil
}

func (s *Store) ConfirmRevocation(_ context.Context, resolutionID string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, strings.TrimSpace(resolutionID))
	return s.confirmErr
}

// FailConfirmations makes every subsequent ConfirmRevocation call return the
// given error, standing in for an exhausted audit sink.
func (s *Store) FailConfirmations(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmErr = err
}

// ConfirmedRevocations lists the resolutions whose revocation was confirmed
// after commit, in call order.
func (s *Store) ConfirmedRevocations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.confirmed...)
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

func sortRevocations(items []entities.Revocation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].RevocationID < items[j].RevocationID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
