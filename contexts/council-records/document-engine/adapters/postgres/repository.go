package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
	"concilium/internal/platform/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(gormDB *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     gormDB,
		logger: logger,
	}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return db.TxFrom(ctx, r.db).WithContext(ctx)
}

// WithinTx opens a database transaction and threads it through the context so
// every repository call inside the callback shares it. Nested calls reuse the
// gorm savepoint machinery.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.TxFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(db.WithTx(ctx, tx))
	})
}

func (r *Repository) CreateDocument(ctx context.Context, document entities.Document) error {
	row := documentModelFromEntity(document)
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDisplayNumberTaken
		}
		return r.logError("records_repo_create_document_failed", err,
			"document_id", row.ID,
			"display_number", row.DisplayNumber,
		)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	return r.getDocument(ctx, documentID, false)
}

// GetDocumentForUpdate takes a row-level write lock so version allocation and
// status transitions serialize per document.
func (r *Repository) GetDocumentForUpdate(ctx context.Context, documentID string) (entities.Document, error) {
	return r.getDocument(ctx, documentID, true)
}

func (r *Repository) getDocument(ctx context.Context, documentID string, forUpdate bool) (entities.Document, error) {
	query := r.conn(ctx).Where("id = ?", strings.TrimSpace(documentID))
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row documentModel
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Document{}, domainerrors.ErrDocumentNotFound
		}
		return entities.Document{}, r.logError("records_repo_get_document_failed", err,
			"document_id", strings.TrimSpace(documentID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdateDocument(ctx context.Context, document entities.Document) error {
	row := documentModelFromEntity(document)
	update := r.conn(ctx).Model(&documentModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":          row.Status,
			"current_version": row.CurrentVersion,
			"updated_at":      row.UpdatedAt,
		})
	if update.Error != nil {
		return r.logError("records_repo_update_document_failed", update.Error,
			"document_id", row.ID,
		)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrDocumentNotFound
	}
	return nil
}

// SaveSnapshot inserts only; the (document_id, version_number) unique key
// turns a concurrent duplicate allocation into ErrVersionConflict so the
// surrounding transaction rolls back.
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot entities.VersionSnapshot) error {
	row, err := snapshotModelFromEntity(snapshot)
	if err != nil {
		return err
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrVersionConflict
		}
		return r.logError("records_repo_save_snapshot_failed", err,
			"document_id", row.DocumentID,
			"version_number", row.VersionNumber,
		)
	}
	return nil
}

func (r *Repository) GetSnapshot(ctx context.Context, documentID string, versionNumber int) (entities.VersionSnapshot, error) {
	var row snapshotModel
	err := r.conn(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Where("version_number = ?", versionNumber).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VersionSnapshot{}, domainerrors.ErrVersionNotFound
		}
		return entities.VersionSnapshot{}, r.logError("records_repo_get_snapshot_failed", err,
			"document_id", strings.TrimSpace(documentID),
			"version_number", versionNumber,
		)
	}
	return row.toEntity()
}

func (r *Repository) ListSnapshots(ctx context.Context, documentID string) ([]entities.VersionSnapshot, error) {
	var rows []snapshotModel
	if err := r.conn(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Order("version_number ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("records_repo_list_snapshots_failed", err,
			"document_id", strings.TrimSpace(documentID),
		)
	}
	items := make([]entities.VersionSnapshot, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) SaveComment(ctx context.Context, comment entities.ReviewComment) error {
	row := commentModelFromEntity(comment)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":       row.Status,
			"response":     row.Response,
			"responded_by": row.RespondedBy,
			"responded_at": row.RespondedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("records_repo_save_comment_failed", create.Error,
			"comment_id", row.ID,
			"document_id", row.DocumentID,
		)
	}
	return nil
}

func (r *Repository) GetComment(ctx context.Context, commentID string) (entities.ReviewComment, error) {
	var row commentModel
	err := r.conn(ctx).
		Where("id = ?", strings.TrimSpace(commentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ReviewComment{}, domainerrors.ErrCommentNotFound
		}
		return entities.ReviewComment{}, r.logError("records_repo_get_comment_failed", err,
			"comment_id", strings.TrimSpace(commentID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCommentsByDocument(ctx context.Context, documentID string) ([]entities.ReviewComment, error) {
	var rows []commentModel
	if err := r.conn(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("records_repo_list_comments_failed", err,
			"document_id", strings.TrimSpace(documentID),
		)
	}
	items := make([]entities.ReviewComment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) PendingCount(ctx context.Context, documentID string) (int, error) {
	var count int64
	err := r.conn(ctx).Model(&commentModel{}).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Where("status = ?", string(entities.ReviewStatusPending)).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("records_repo_pending_count_failed", err,
			"document_id", strings.TrimSpace(documentID),
		)
	}
	return int(count), nil
}

func (r *Repository) SavePublication(ctx context.Context, record entities.PublicationRecord) error {
	row := publicationModelFromEntity(record)
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("records_repo_save_publication_failed", err,
			"publication_id", row.ID,
			"document_id", row.DocumentID,
		)
	}
	return nil
}

func (r *Repository) ListPublicationsByDocument(ctx context.Context, documentID string) ([]entities.PublicationRecord, error) {
	var rows []publicationModel
	if err := r.conn(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Order("published_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("records_repo_list_publications_failed", err,
			"document_id", strings.TrimSpace(documentID),
		)
	}
	items := make([]entities.PublicationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPublications(ctx context.Context, limit int) ([]entities.PublicationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []publicationModel
	if err := r.conn(ctx).
		Order("published_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("records_repo_list_ledger_failed", err)
	}
	items := make([]entities.PublicationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// Append writes one audit row per dedup key. Replayed appends with the same
// key are absorbed by the conflict clause, keeping retries idempotent.
func (r *Repository) Append(ctx context.Context, entry ports.AuditEntry) error {
	row := auditModel{
		DedupKey:    strings.TrimSpace(entry.DedupKey),
		ActorID:     strings.TrimSpace(entry.ActorID),
		Action:      strings.TrimSpace(entry.Action),
		EntityKind:  strings.TrimSpace(entry.EntityKind),
		EntityID:    strings.TrimSpace(entry.EntityID),
		BeforeState: entry.BeforeState,
		AfterState:  entry.AfterState,
		OccurredAt:  entry.OccurredAt.UTC(),
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("records_repo_audit_append_failed", create.Error,
			"entity_id", row.EntityID,
			"action", row.Action,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("records_repo_append_outbox_failed", create.Error,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.conn(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("records_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	update := r.conn(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if update.Error != nil {
		return r.logError("records_repo_mark_outbox_published_failed", update.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "council-records/document-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("records repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type documentModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Kind           string    `gorm:"column:kind;uniqueIndex:idx_documents_display,priority:1"`
	DisplayNumber  string    `gorm:"column:display_number;uniqueIndex:idx_documents_display,priority:2"`
	Status         string    `gorm:"column:status"`
	CurrentVersion int       `gorm:"column:current_version"`
	CreatedBy      string    `gorm:"column:created_by"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (documentModel) TableName() string {
	return "documents"
}

func documentModelFromEntity(document entities.Document) documentModel {
	return documentModel{
		ID:             strings.TrimSpace(document.DocumentID),
		Kind:           string(document.Kind),
		DisplayNumber:  strings.TrimSpace(document.DisplayNumber),
		Status:         string(document.Status),
		CurrentVersion: document.CurrentVersion,
		CreatedBy:      strings.TrimSpace(document.CreatedBy),
		CreatedAt:      document.CreatedAt.UTC(),
		UpdatedAt:      document.UpdatedAt.UTC(),
	}
}

func (m documentModel) toEntity() entities.Document {
	return entities.Document{
		DocumentID:     m.ID,
		Kind:           entities.DocumentKind(m.Kind),
		DisplayNumber:  m.DisplayNumber,
		Status:         entities.DocumentStatus(m.Status),
		CurrentVersion: m.CurrentVersion,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type snapshotModel struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentID    string    `gorm:"column:document_id;uniqueIndex:idx_versions_identity,priority:1"`
	VersionNumber int       `gorm:"column:version_number;uniqueIndex:idx_versions_identity,priority:2"`
	Content       []byte    `gorm:"column:content"`
	AuthorID      string    `gorm:"column:author_id"`
	ChangeSummary string    `gorm:"column:change_summary"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (snapshotModel) TableName() string {
	return "document_versions"
}

func snapshotModelFromEntity(snapshot entities.VersionSnapshot) (snapshotModel, error) {
	content, err := json.Marshal(snapshot.Content)
	if err != nil {
		return snapshotModel{}, err
	}
	return snapshotModel{
		DocumentID:    strings.TrimSpace(snapshot.DocumentID),
		VersionNumber: snapshot.VersionNumber,
		Content:       content,
		AuthorID:      strings.TrimSpace(snapshot.AuthorID),
		ChangeSummary: strings.TrimSpace(snapshot.ChangeSummary),
		CreatedAt:     snapshot.CreatedAt.UTC(),
	}, nil
}

func (m snapshotModel) toEntity() (entities.VersionSnapshot, error) {
	var content entities.DocumentContent
	if len(m.Content) > 0 {
		if err := json.Unmarshal(m.Content, &content); err != nil {
			return entities.VersionSnapshot{}, err
		}
	}
	return entities.VersionSnapshot{
		DocumentID:    m.DocumentID,
		VersionNumber: m.VersionNumber,
		Content:       content,
		AuthorID:      m.AuthorID,
		ChangeSummary: m.ChangeSummary,
		CreatedAt:     m.CreatedAt,
	}, nil
}

type commentModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	DocumentID      string     `gorm:"column:document_id;index"`
	Section         string     `gorm:"column:section"`
	LineReference   *int       `gorm:"column:line_reference"`
	Body            string     `gorm:"column:body"`
	SuggestedChange string     `gorm:"column:suggested_change"`
	Status          string     `gorm:"column:status"`
	Response        string     `gorm:"column:response"`
	RespondedBy     string     `gorm:"column:responded_by"`
	RespondedAt     *time.Time `gorm:"column:responded_at"`
	CreatedBy       string     `gorm:"column:created_by"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

func (commentModel) TableName() string {
	return "review_comments"
}

func commentModelFromEntity(comment entities.ReviewComment) commentModel {
	return commentModel{
		ID:              strings.TrimSpace(comment.CommentID),
		DocumentID:      strings.TrimSpace(comment.DocumentID),
		Section:         string(comment.Section),
		LineReference:   comment.LineReference,
		Body:            comment.Body,
		SuggestedChange: comment.SuggestedChange,
		Status:          string(comment.Status),
		Response:        comment.Response,
		RespondedBy:     strings.TrimSpace(comment.RespondedBy),
		RespondedAt:     comment.RespondedAt,
		CreatedBy:       strings.TrimSpace(comment.CreatedBy),
		CreatedAt:       comment.CreatedAt.UTC(),
	}
}

func (m commentModel) toEntity() entities.ReviewComment {
	return entities.ReviewComment{
		CommentID:       m.ID,
		DocumentID:      m.DocumentID,
		Section:         entities.DocumentSection(m.Section),
		LineReference:   m.LineReference,
		Body:            m.Body,
		SuggestedChange: m.SuggestedChange,
		Status:          entities.ReviewStatus(m.Status),
		Response:        m.Response,
		RespondedBy:     m.RespondedBy,
		RespondedAt:     m.RespondedAt,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

type publicationModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	DocumentID  string    `gorm:"column:document_id;index"`
	Venue       string    `gorm:"column:venue"`
	PublishedAt time.Time `gorm:"column:published_at"`
	Page        string    `gorm:"column:page"`
	Edition     string    `gorm:"column:edition"`
	URL         string    `gorm:"column:url"`
	PublishedBy string    `gorm:"column:published_by"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (publicationModel) TableName() string {
	return "publication_records"
}

func publicationModelFromEntity(record entities.PublicationRecord) publicationModel {
	return publicationModel{
		ID:          strings.TrimSpace(record.PublicationID),
		DocumentID:  strings.TrimSpace(record.DocumentID),
		Venue:       string(record.Venue),
		PublishedAt: record.PublishedAt.UTC(),
		Page:        record.Page,
		Edition:     record.Edition,
		URL:         record.URL,
		PublishedBy: strings.TrimSpace(record.PublishedBy),
		CreatedAt:   record.CreatedAt.UTC(),
	}
}

func (m publicationModel) toEntity() entities.PublicationRecord {
	return entities.PublicationRecord{
		PublicationID: m.ID,
		DocumentID:    m.DocumentID,
		Venue:         entities.PublicationVenue(m.Venue),
		PublishedAt:   m.PublishedAt,
		Page:          m.Page,
		Edition:       m.Edition,
		URL:           m.URL,
		PublishedBy:   m.PublishedBy,
		CreatedAt:     m.CreatedAt,
	}
}

type auditModel struct {
	DedupKey    string    `gorm:"column:dedup_key;primaryKey"`
	ActorID     string    `gorm:"column:actor_id"`
	Action      string    `gorm:"column:action"`
	EntityKind  string    `gorm:"column:entity_kind"`
	EntityID    string    `gorm:"column:entity_id;index"`
	BeforeState string    `gorm:"column:before_state"`
	AfterState  string    `gorm:"column:after_state"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

func (auditModel) TableName() string {
	return "audit_entries"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "records_outbox"
}
