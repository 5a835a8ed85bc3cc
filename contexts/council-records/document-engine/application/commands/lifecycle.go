package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "concilium/contexts/council-records/document-engine/application"
	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
)

type CreateDocumentCommand struct {
	Kind          entities.DocumentKind
	DisplayNumber string
	ActorID       string
}

type SubmitForReviewCommand struct {
	DocumentID    string
	AuthorID      string
	Content       entities.DocumentContent
	ChangeSummary string
}

type SubmitForReviewResult struct {
	Document entities.Document
	Snapshot entities.VersionSnapshot
}

type ApproveCommand struct {
	DocumentID string
	ApproverID string
}

type CloseVotingCommand struct {
	DocumentID string
	ActorID    string
}

type PublishCommand struct {
	DocumentID  string
	ActorID     string
	Publication PublicationInput
}

type PublicationInput struct {
	Venue       entities.PublicationVenue
	PublishedAt time.Time
	Page        string
	Edition     string
	URL         string
}

type RevokeCommand struct {
	DocumentID string
	ActorID    string
	Reason     string
}

// LifecycleUseCase drives the per-kind document status machine. Each
// transition commits the document write first and then appends one audit
// entry through the external audit log, retried with bounded backoff; an
// exhausted audit append surfaces as ErrAuditUnavailable without rolling the
// committed document change back.
type LifecycleUseCase struct {
	Documents    ports.DocumentRepository
	Versions     ports.VersionRepository
	Reviews      ports.ReviewRepository
	Publications ports.PublicationRepository
	VoteResults  ports.VoteResultReader
	Audit        ports.AuditLog
	Tx           ports.Transactor
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator

	AuditMaxAttempts int
	AuditBackoff     time.Duration
	Logger           *slog.Logger
}

// CreateDocument registers a new draft with its immutable display number.
// No snapshot exists yet; the first SubmitForReview writes version 1.
func (uc LifecycleUseCase) CreateDocument(ctx context.Context, cmd CreateDocumentCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()

	document := entities.Document{
		Kind:          cmd.Kind,
		DisplayNumber: strings.TrimSpace(cmd.DisplayNumber),
		Status:        entities.DocumentStatusDraft,
		CreatedBy:     strings.TrimSpace(cmd.ActorID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !document.ValidateCreate() {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}

	documentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Document{}, err
	}
	document.DocumentID = documentID

	if err := uc.Documents.CreateDocument(ctx, document); err != nil {
		return entities.Document{}, err
	}
	if err := uc.appendDocumentEvent(ctx, "document.created", document, now, nil); err != nil {
		return entities.Document{}, err
	}

	logger.Info("document created",
		"event", "records_document_created",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", document.DocumentID,
		"kind", string(document.Kind),
		"display_number", document.DisplayNumber,
	)
	return document, nil
}

// SubmitForReview appends a new version snapshot. The version number is
// allocated transactionally so concurrent submitters on the same document
// cannot collide. The first submission advances a draft to under_review
// (minutes) or voting_open (resolutions); later submissions while still
// editable leave the status unchanged.
func (uc LifecycleUseCase) SubmitForReview(ctx context.Context, cmd SubmitForReviewCommand) (SubmitForReviewResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(cmd.DocumentID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	if documentID == "" || authorID == "" {
		return SubmitForReviewResult{}, domainerrors.ErrInvalidDocumentInput
	}

	now := uc.now()
	var result SubmitForReviewResult
	var before entities.DocumentStatus

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		document, err := uc.Documents.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if !document.Editable() {
			return domainerrors.ErrInvalidTransition
		}
		before = document.Status

		snapshot := entities.VersionSnapshot{
			DocumentID:    documentID,
			VersionNumber: document.CurrentVersion + 1,
			Content:       cmd.Content,
			AuthorID:      authorID,
			ChangeSummary: strings.TrimSpace(cmd.ChangeSummary),
			CreatedAt:     now,
		}
		if err := uc.Versions.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}

		document.CurrentVersion = snapshot.VersionNumber
		if document.Status == entities.DocumentStatusDraft {
			document.Status = document.FirstSubmissionStatus()
		}
		document.UpdatedAt = now
		if err := uc.Documents.UpdateDocument(ctx, document); err != nil {
			return err
		}
		if err := uc.appendDocumentEvent(ctx, "document.submitted", document, now, map[string]any{
			"version_number": snapshot.VersionNumber,
			"author_id":      authorID,
		}); err != nil {
			return err
		}

		result = SubmitForReviewResult{Document: document, Snapshot: snapshot}
		return nil
	})
	if err != nil {
		return SubmitForReviewResult{}, err
	}

	logger.Info("document version submitted",
		"event", "records_document_submitted",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
		"version_number", result.Snapshot.VersionNumber,
		"status", string(result.Document.Status),
	)
	if before != result.Document.Status {
		if err := uc.recordTransition(ctx, result.Document, "submit_for_review", authorID, before, now); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Approve advances a document to approved. Minutes require every review
// comment resolved; resolutions require a computed vote result with an
// approved outcome.
func (uc LifecycleUseCase) Approve(ctx context.Context, cmd ApproveCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(cmd.DocumentID)
	approverID := strings.TrimSpace(cmd.ApproverID)
	if documentID == "" || approverID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}

	now := uc.now()
	var updated entities.Document
	var before entities.DocumentStatus

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		document, err := uc.Documents.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if !document.CanTransition(entities.DocumentStatusApproved) {
			return domainerrors.ErrInvalidTransition
		}
		before = document.Status

		switch document.Kind {
		case entities.DocumentKindMinutes:
			pending, err := uc.Reviews.PendingCount(ctx, documentID)
			if err != nil {
				return err
			}
			if pending > 0 {
				return domainerrors.ErrPendingReviewsExist
			}
		case entities.DocumentKindResolution:
			result, err := uc.VoteResults.ResultFor(ctx, documentID)
			if err != nil {
				return fmt.Errorf("%w: %w", domainerrors.ErrVoteResultUnavailable, err)
			}
			if !strings.EqualFold(result.Outcome, "approved") {
				return domainerrors.ErrVoteNotApproved
			}
		}

		document.Status = entities.DocumentStatusApproved
		document.UpdatedAt = now
		if err := uc.Documents.UpdateDocument(ctx, document); err != nil {
			return err
		}
		if err := uc.appendDocumentEvent(ctx, "document.approved", document, now, map[string]any{
			"approver_id": approverID,
		}); err != nil {
			return err
		}
		updated = document
		return nil
	})
	if err != nil {
		return entities.Document{}, err
	}

	logger.Info("document approved",
		"event", "records_document_approved",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
		"approver_id", approverID,
	)
	if err := uc.recordTransition(ctx, updated, "approve", approverID, before, now); err != nil {
		return updated, err
	}
	return updated, nil
}

// CloseVoting settles an open resolution vote: approved or rejected per the
// computed result. A vote without quorum cannot be closed.
func (uc LifecycleUseCase) CloseVoting(ctx context.Context, cmd CloseVotingCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(cmd.DocumentID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if documentID == "" || actorID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}

	now := uc.now()
	var updated entities.Document
	var before entities.DocumentStatus
	var action string

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		document, err := uc.Documents.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if document.Kind != entities.DocumentKindResolution ||
			document.Status != entities.DocumentStatusVotingOpen {
			return domainerrors.ErrInvalidTransition
		}
		before = document.Status

		result, err := uc.VoteResults.ResultFor(ctx, documentID)
		if err != nil {
			return fmt.Errorf("%w: %w", domainerrors.ErrVoteResultUnavailable, err)
		}
		switch strings.ToLower(strings.TrimSpace(result.Outcome)) {
		case "approved":
			document.Status = entities.DocumentStatusApproved
			action = "approve"
		case "rejected":
			document.Status = entities.DocumentStatusRejected
			action = "reject"
		default:
			return domainerrors.ErrNoQuorum
		}

		document.UpdatedAt = now
		if err := uc.Documents.UpdateDocument(ctx, document); err != nil {
			return err
		}
		eventType := "document.approved"
		if document.Status == entities.DocumentStatusRejected {
			eventType = "document.rejected"
		}
		if err := uc.appendDocumentEvent(ctx, eventType, document, now, map[string]any{
			"actor_id": actorID,
		}); err != nil {
			return err
		}
		updated = document
		return nil
	})
	if err != nil {
		return entities.Document{}, err
	}

	logger.Info("resolution voting closed",
		"event", "records_voting_closed",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
		"status", string(updated.Status),
	)
	if err := uc.recordTransition(ctx, updated, action, actorID, before, now); err != nil {
		return updated, err
	}
	return updated, nil
}

// Publish records the publication event and advances approved → published.
func (uc LifecycleUseCase) Publish(ctx context.Context, cmd PublishCommand) (entities.Document, error) {
	documentID := strings.TrimSpace(cmd.DocumentID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if documentID == "" || actorID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}
	document, _, err := uc.recordPublication(ctx, documentID, actorID, cmd.Publication, true)
	return document, err
}

// RecordPublication appends a publication-ledger record. The first record for
// a document still in approved status triggers the published transition;
// republication of an already-published document only extends the ledger.
func (uc LifecycleUseCase) RecordPublication(
	ctx context.Context,
	documentID string,
	actorID string,
	input PublicationInput,
) (entities.PublicationRecord, error) {
	documentID = strings.TrimSpace(documentID)
	actorID = strings.TrimSpace(actorID)
	if documentID == "" || actorID == "" {
		return entities.PublicationRecord{}, domainerrors.ErrInvalidDocumentInput
	}
	_, record, err := uc.recordPublication(ctx, documentID, actorID, input, false)
	return record, err
}

func (uc LifecycleUseCase) recordPublication(
	ctx context.Context,
	documentID string,
	actorID string,
	input PublicationInput,
	requireApproved bool,
) (entities.Document, entities.PublicationRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()

	var updated entities.Document
	var saved entities.PublicationRecord
	var before entities.DocumentStatus
	var transitioned bool

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		document, err := uc.Documents.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		before = document.Status

		switch document.Status {
		case entities.DocumentStatusApproved:
		case entities.DocumentStatusPublished:
			if requireApproved {
				return domainerrors.ErrNotApproved
			}
		default:
			if requireApproved {
				return domainerrors.ErrNotApproved
			}
			return domainerrors.ErrInvalidTransition
		}

		publicationID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		publishedAt := input.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = now
		}
		record := entities.PublicationRecord{
			PublicationID: publicationID,
			DocumentID:    documentID,
			Venue:         input.Venue,
			PublishedAt:   publishedAt.UTC(),
			Page:          strings.TrimSpace(input.Page),
			Edition:       strings.TrimSpace(input.Edition),
			URL:           strings.TrimSpace(input.URL),
			PublishedBy:   actorID,
			CreatedAt:     now,
		}
		if !record.ValidateCreate() {
			return domainerrors.ErrInvalidPublication
		}
		if err := uc.Publications.SavePublication(ctx, record); err != nil {
			return err
		}

		if document.Status == entities.DocumentStatusApproved {
			document.Status = entities.DocumentStatusPublished
			document.UpdatedAt = now
			if err := uc.Documents.UpdateDocument(ctx, document); err != nil {
				return err
			}
			if err := uc.appendDocumentEvent(ctx, "document.published", document, now, map[string]any{
				"venue":          string(record.Venue),
				"publication_id": record.PublicationID,
			}); err != nil {
				return err
			}
			transitioned = true
		}
		updated = document
		saved = record
		return nil
	})
	if err != nil {
		return entities.Document{}, entities.PublicationRecord{}, err
	}

	logger.Info("publication recorded",
		"event", "records_publication_recorded",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
		"venue", string(saved.Venue),
		"transitioned", transitioned,
	)
	if transitioned {
		if err := uc.recordTransition(ctx, updated, "publish", actorID, before, now); err != nil {
			return updated, saved, err
		}
	}
	return updated, saved, nil
}

// Revoke is the terminal transition for resolutions, reachable only from
// published and only through a total revocation recorded by the revocation
// graph.
func (uc LifecycleUseCase) Revoke(ctx context.Context, cmd RevokeCommand) (entities.Document, error) {
	updated, err := uc.RevokeTransition(ctx, cmd)
	if err != nil {
		return entities.Document{}, err
	}
	if err := uc.recordTransition(ctx, updated, "revoke", strings.TrimSpace(cmd.ActorID),
		entities.DocumentStatusPublished, updated.UpdatedAt); err != nil {
		return updated, err
	}
	return updated, nil
}

// RevokeTransition commits the status change without appending the audit
// trail. Callers that run it inside a larger transaction append the trail
// with RecordRevokeAudit once that transaction has committed, so the audit
// append and its retry backoffs never hold the caller's transaction open.
func (uc LifecycleUseCase) RevokeTransition(ctx context.Context, cmd RevokeCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(cmd.DocumentID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if documentID == "" || actorID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}

	now := uc.now()
	var updated entities.Document

	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		document, err := uc.Documents.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if document.Status == entities.DocumentStatusRevoked {
			return domainerrors.ErrAlreadyRevoked
		}
		if document.Kind != entities.DocumentKindResolution ||
			document.Status != entities.DocumentStatusPublished {
			return domainerrors.ErrNotPublished
		}

		document.Status = entities.DocumentStatusRevoked
		document.UpdatedAt = now
		if err := uc.Documents.UpdateDocument(ctx, document); err != nil {
			return err
		}
		if err := uc.appendDocumentEvent(ctx, "document.revoked", document, now, map[string]any{
			"actor_id": actorID,
			"reason":   strings.TrimSpace(cmd.Reason),
		}); err != nil {
			return err
		}
		updated = document
		return nil
	})
	if err != nil {
		return entities.Document{}, err
	}

	logger.Info("document revoked",
		"event", "records_document_revoked",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
	)
	return updated, nil
}

// RecordRevokeAudit appends the audit entry for an already committed revoke
// transition. Published is the only status a revoke can leave, so the before
// state is fixed.
func (uc LifecycleUseCase) RecordRevokeAudit(ctx context.Context, documentID string, actorID string) error {
	document, err := uc.Documents.GetDocument(ctx, strings.TrimSpace(documentID))
	if err != nil {
		return err
	}
	return uc.recordTransition(ctx, document, "revoke", strings.TrimSpace(actorID),
		entities.DocumentStatusPublished, document.UpdatedAt)
}

func (uc LifecycleUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// recordTransition appends one audit entry per committed transition. Appends
// retry with backoff up to the bounded attempt count; exhaustion surfaces
// ErrAuditUnavailable while the document change stays committed; the audit
// trail may lag but the document state never rolls back.
func (uc LifecycleUseCase) recordTransition(
	ctx context.Context,
	document entities.Document,
	action string,
	actorID string,
	before entities.DocumentStatus,
	occurredAt time.Time,
) error {
	if uc.Audit == nil {
		return nil
	}
	logger := application.ResolveLogger(uc.Logger)
	entry := ports.AuditEntry{
		DedupKey:    fmt.Sprintf("%s:%s:%s:%s", document.DocumentID, action, before, document.Status),
		ActorID:     actorID,
		Action:      action,
		EntityKind:  string(document.Kind),
		EntityID:    document.DocumentID,
		BeforeState: string(before),
		AfterState:  string(document.Status),
		OccurredAt:  occurredAt,
	}

	attempts := uc.AuditMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := uc.AuditBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = uc.Audit.Append(ctx, entry)
		if lastErr == nil {
			return nil
		}
		logger.Warn("audit append failed",
			"event", "records_audit_append_failed",
			"module", "council-records/document-engine",
			"layer", "application",
			"document_id", document.DocumentID,
			"action", action,
			"attempt", attempt,
			"error", lastErr.Error(),
		)
		if attempt < attempts {
			time.Sleep(backoff * time.Duration(attempt))
		}
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrAuditUnavailable, lastErr)
}

func (uc LifecycleUseCase) appendDocumentEvent(
	ctx context.Context,
	eventType string,
	document entities.Document,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"document_id":     document.DocumentID,
		"kind":            string(document.Kind),
		"display_number":  document.DisplayNumber,
		"status":          string(document.Status),
		"current_version": document.CurrentVersion,
		"occurred_at":     occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newDocumentEnvelope(eventID, eventType, document.DocumentID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
