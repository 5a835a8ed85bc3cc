package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"
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

// WithinTx opens a database transaction and threads it through the context.
// The document engine's revoke runs inside the same transaction when a total
// edge is recorded.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.TxFrom(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(db.WithTx(ctx, tx))
	})
}

func (r *Repository) SaveRevocation(ctx context.Context, revocation entities.Revocation) error {
	row, err := revocationModelFromEntity(revocation)
	if err != nil {
		return err
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			// The partial unique index on (original_resolution_id) WHERE
			// scope = 'total' backs the in-transaction existence check.
			return domainerrors.ErrAlreadyTotallyRevoked
		}
		return r.logError("revocation_repo_save_failed", err,
			"revocation_id", row.ID,
			"original_resolution_id", row.OriginalResolutionID,
		)
	}
	return nil
}

func (r *Repository) GetTotalRevocation(ctx context.Context, originalResolutionID string) (entities.Revocation, bool, error) {
	var row revocationModel
	err := r.conn(ctx).
		Where("original_resolution_id = ?", strings.TrimSpace(originalResolutionID)).
		Where("scope = ?", string(entities.RevocationScopeTotal)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Revocation{}, false, nil
		}
		return entities.Revocation{}, false, r.logError("revocation_repo_get_total_failed", err,
			"original_resolution_id", strings.TrimSpace(originalResolutionID),
		)
	}
	revocation, err := row.toEntity()
	if err != nil {
		return entities.Revocation{}, false, err
	}
	return revocation, true, nil
}

func (r *Repository) ListByOriginal(ctx context.Context, originalResolutionID string) ([]entities.Revocation, error) {
	return r.list(ctx, "original_resolution_id", originalResolutionID)
}

func (r *Repository) ListByRevoker(ctx context.Context, revokingResolutionID string) ([]entities.Revocation, error) {
	return r.list(ctx, "revoking_resolution_id", revokingResolutionID)
}

func (r *Repository) list(ctx context.Context, column string, resolutionID string) ([]entities.Revocation, error) {
	var rows []revocationModel
	if err := r.conn(ctx).
		Where(column+" = ?", strings.TrimSpace(resolutionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("revocation_repo_list_failed", err,
			"column", column,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}
	items := make([]entities.Revocation, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetResolution reads the lifecycle status projection from the documents
// table owned by the document engine.
func (r *Repository) GetResolution(ctx context.Context, resolutionID string) (ports.ResolutionProjection, error) {
	var row resolutionProjectionModel
	err := r.conn(ctx).
		Where("id = ?", strings.TrimSpace(resolutionID)).
		Where("kind = ?", "resolution").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ResolutionProjection{}, domainerrors.ErrResolutionNotFound
		}
		return ports.ResolutionProjection{}, r.logError("revocation_repo_get_resolution_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}
	return ports.ResolutionProjection{
		ResolutionID: row.ID,
		Status:       row.Status,
	}, nil
}

// ArticlesFor reads the articles of the resolution's current version from the
// snapshot table owned by the document engine.
func (r *Repository) ArticlesFor(ctx context.Context, resolutionID string) ([]entities.ArticleText, error) {
	var document resolutionProjectionModel
	err := r.conn(ctx).
		Where("id = ?", strings.TrimSpace(resolutionID)).
		Where("kind = ?", "resolution").
		First(&document).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrResolutionNotFound
		}
		return nil, r.logError("revocation_repo_get_content_document_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}

	var snapshot snapshotProjectionModel
	err = r.conn(ctx).
		Where("document_id = ?", document.ID).
		Where("version_number = ?", document.CurrentVersion).
		First(&snapshot).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.logError("revocation_repo_get_content_snapshot_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}

	var content struct {
		Articles []struct {
			Number  string `json:"number"`
			Heading string `json:"heading"`
			Body    string `json:"body"`
		} `json:"articles"`
	}
	if len(snapshot.Content) > 0 {
		if err := json.Unmarshal(snapshot.Content, &content); err != nil {
			return nil, err
		}
	}
	articles := make([]entities.ArticleText, 0, len(content.Articles))
	for _, article := range content.Articles {
		articles = append(articles, entities.ArticleText{
			Number:  article.Number,
			Heading: article.Heading,
			Body:    article.Body,
		})
	}
	return articles, nil
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
		return r.logError("revocation_repo_append_outbox_failed", create.Error,
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
		return nil, r.logError("revocation_repo_list_pending_outbox_failed", err)
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
		return r.logError("revocation_repo_mark_outbox_published_failed", update.Error,
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
		"module", "council-records/revocation-graph",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("revocation repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type revocationModel struct {
	ID                   string    `gorm:"column:id;primaryKey"`
	OriginalResolutionID string    `gorm:"column:original_resolution_id;index"`
	RevokingResolutionID string    `gorm:"column:revoking_resolution_id;index"`
	Scope                string    `gorm:"column:scope"`
	AffectedArticles     []byte    `gorm:"column:affected_articles"`
	Reason               string    `gorm:"column:reason"`
	EffectiveDate        time.Time `gorm:"column:effective_date"`
	CreatedBy            string    `gorm:"column:created_by"`
	CreatedAt            time.Time `gorm:"column:created_at"`
}

func (revocationModel) TableName() string {
	return "revocations"
}

func revocationModelFromEntity(revocation entities.Revocation) (revocationModel, error) {
	var affected []byte
	if len(revocation.AffectedArticles) > 0 {
		encoded, err := json.Marshal(revocation.AffectedArticles)
		if err != nil {
			return revocationModel{}, err
		}
		affected = encoded
	}
	return revocationModel{
		ID:                   strings.TrimSpace(revocation.RevocationID),
		OriginalResolutionID: strings.TrimSpace(revocation.OriginalResolutionID),
		RevokingResolutionID: strings.TrimSpace(revocation.RevokingResolutionID),
		Scope:                string(revocation.Scope),
		AffectedArticles:     affected,
		Reason:               strings.TrimSpace(revocation.Reason),
		EffectiveDate:        revocation.EffectiveDate.UTC(),
		CreatedBy:            strings.TrimSpace(revocation.CreatedBy),
		CreatedAt:            revocation.CreatedAt.UTC(),
	}, nil
}

func (m revocationModel) toEntity() (entities.Revocation, error) {
	var affected []string
	if len(m.AffectedArticles) > 0 {
		if err := json.Unmarshal(m.AffectedArticles, &affected); err != nil {
			return entities.Revocation{}, err
		}
	}
	return entities.Revocation{
		RevocationID:         m.ID,
		OriginalResolutionID: m.OriginalResolutionID,
		RevokingResolutionID: m.RevokingResolutionID,
		Scope:                entities.RevocationScope(m.Scope),
		AffectedArticles:     affected,
		Reason:               m.Reason,
		EffectiveDate:        m.EffectiveDate,
		CreatedBy:            m.CreatedBy,
		CreatedAt:            m.CreatedAt,
	}, nil
}

type resolutionProjectionModel struct {
	ID             string `gorm:"column:id;primaryKey"`
	Kind           string `gorm:"column:kind"`
	Status         string `gorm:"column:status"`
	CurrentVersion int    `gorm:"column:current_version"`
}

func (resolutionProjectionModel) TableName() string {
	return "documents"
}

type snapshotProjectionModel struct {
	DocumentID    string `gorm:"column:document_id"`
	VersionNumber int    `gorm:"column:version_number"`
	Content       []byte `gorm:"column:content"`
}

func (snapshotProjectionModel) TableName() string {
	return "document_versions"
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
	return "revocation_outbox"
}
