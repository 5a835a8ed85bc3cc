package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store implements every document-engine port in memory for tests and local
// wiring. Version and audit uniqueness mirror the relational constraints:
// one snapshot per (document_id, version_number), one audit row per dedup
// key, one document per (kind, display_number).
type Store struct {
	mu sync.RWMutex

	documents    map[string]entities.Document
	snapshots    map[string]entities.VersionSnapshot
	comments     map[string]entities.ReviewComment
	publications map[string]entities.PublicationRecord
	voteResults  map[string]ports.VoteResultProjection
	audit        map[string]ports.AuditEntry
	outbox       map[string]outboxRecord

	// AuditFailures makes the next N audit appends fail, for exercising the
	// bounded-retry path.
	AuditFailures int
}

func NewStore(seed []entities.Document) *Store {
	documents := make(map[string]entities.Document, len(seed))
	for _, document := range seed {
		documents[document.DocumentID] = document
	}
	return &Store{
		documents:    documents,
		snapshots:    make(map[string]entities.VersionSnapshot),
		comments:     make(map[string]entities.ReviewComment),
		publications: make(map[string]entities.PublicationRecord),
		voteResults:  make(map[string]ports.VoteResultProjection),
		audit:        make(map[string]ports.AuditEntry),
		outbox:       make(map[string]outboxRecord),
	}
}

func snapshotKey(documentID string, versionNumber int) string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(documentID), versionNumber)
}

func (s *Store) SetVoteResult(projection ports.VoteResultProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voteResults[strings.TrimSpace(projection.ResolutionID)] = projection
}

// AuditEntries returns the appended audit rows ordered by occurrence time.
func (s *Store) AuditEntries() []ports.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.AuditEntry, 0, len(s.audit))
	for _, entry := range s.audit {
		items = append(items, entry)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})
	return items
}

// WithinTx runs the callback inline. Transactional isolation and rollback
// come from the postgres adapter; the in-memory store only preserves the
// call shape so use cases wire identically in tests.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) CreateDocument(_ context.Context, document entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	documentID := strings.TrimSpace(document.DocumentID)
	if _, ok := s.documents[documentID]; ok {
		return domainerrors.ErrConflict
	}
	for _, existing := range s.documents {
		if existing.Kind == document.Kind && existing.DisplayNumber == document.DisplayNumber {
			return domainerrors.ErrDisplayNumberTaken
		}
	}
	s.documents[documentID] = document
	return nil
}

func (s *Store) GetDocument(_ context.Context, documentID string) (entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	document, ok := s.documents[strings.TrimSpace(documentID)]
	if !ok {
		return entities.Document{}, domainerrors.ErrDocumentNotFound
	}
	return document, nil
}

func (s *Store) GetDocumentForUpdate(ctx context.Context, documentID string) (entities.Document, error) {
	return s.GetDocument(ctx, documentID)
}

func (s *Store) UpdateDocument(_ context.Context, document entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	documentID := strings.TrimSpace(document.DocumentID)
	if _, ok := s.documents[documentID]; !ok {
		return domainerrors.ErrDocumentNotFound
	}
	s.documents[documentID] = document
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snapshot entities.VersionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := snapshotKey(snapshot.DocumentID, snapshot.VersionNumber)
	if _, ok := s.snapshots[key]; ok {
		return domainerrors.ErrVersionConflict
	}
	s.snapshots[key] = snapshot
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, documentID string, versionNumber int) (entities.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[snapshotKey(documentID, versionNumber)]
	if !ok {
		return entities.VersionSnapshot{}, domainerrors.ErrVersionNotFound
	}
	return snapshot, nil
}

func (s *Store) ListSnapshots(_ context.Context, documentID string) ([]entities.VersionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	documentID = strings.TrimSpace(documentID)
	items := make([]entities.VersionSnapshot, 0)
	for _, snapshot := range s.snapshots {
		if snapshot.DocumentID == documentID {
			items = append(items, snapshot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VersionNumber < items[j].VersionNumber
	})
	return items, nil
}

func (s *Store) SaveComment(_ context.Context, comment entities.ReviewComment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[strings.TrimSpace(comment.CommentID)] = comment
	return nil
}

func (s *Store) GetComment(_ context.Context, commentID string) (entities.ReviewComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[strings.TrimSpace(commentID)]
	if !ok {
		return entities.ReviewComment{}, domainerrors.ErrCommentNotFound
	}
	return comment, nil
}

func (s *Store) ListCommentsByDocument(_ context.Context, documentID string) ([]entities.ReviewComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	documentID = strings.TrimSpace(documentID)
	items := make([]entities.ReviewComment, 0)
	for _, comment := range s.comments {
		if comment.DocumentID == documentID {
			items = append(items, comment)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) PendingCount(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	documentID = strings.TrimSpace(documentID)
	count := 0
	for _, comment := range s.comments {
		if comment.DocumentID == documentID && comment.Status == entities.ReviewStatusPending {
			count++
		}
	}
	return count, nil
}

func (s *Store) SavePublication(_ context.Context, record entities.PublicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	publicationID := strings.TrimSpace(record.PublicationID)
	if _, ok := s.publications[publicationID]; ok {
		return domainerrors.ErrConflict
	}
	s.publications[publicationID] = record
	return nil
}

func (s *Store) ListPublicationsByDocument(_ context.Context, documentID string) ([]entities.PublicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	documentID = strings.TrimSpace(documentID)
	items := make([]entities.PublicationRecord, 0)
	for _, record := range s.publications {
		if record.DocumentID == documentID {
			items = append(items, record)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})
	return items, nil
}

func (s *Store) ListPublications(_ context.Context, limit int) ([]entities.PublicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.PublicationRecord, 0, len(s.publications))
	for _, record := range s.publications {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) Append(_ context.Context, entry ports.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AuditFailures > 0 {
		s.AuditFailures--
		return errors.New("audit log unavailable")
	}
	// Re-appending the same dedup key is a no-op, matching the at-least-once
	// contract of the external audit log.
	s.audit[strings.TrimSpace(entry.DedupKey)] = entry
	return nil
}

func (s *Store) ResultFor(_ context.Context, resolutionID string) (ports.VoteResultProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projection, ok := s.voteResults[strings.TrimSpace(resolutionID)]
	if !ok {
		return ports.VoteResultProjection{}, errors.New("vote result not computed")
	}
	return projection, nil
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
