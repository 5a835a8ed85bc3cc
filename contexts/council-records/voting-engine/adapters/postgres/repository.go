package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"concilium/contexts/council-records/voting-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	"concilium/contexts/council-records/voting-engine/ports"
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

// SaveBallot upserts by the (resolution_id, voter_id) unique key so re-casting
// is a single atomic write.
func (r *Repository) SaveBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModelFromEntity(ballot)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resolution_id"}, {Name: "voter_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"choice":            row.Choice,
			"impeded":           row.Impeded,
			"impediment_reason": row.ImpedimentReason,
			"updated_at":        row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("voting_repo_save_ballot_failed", create.Error,
			"ballot_id", strings.TrimSpace(ballot.BallotID),
			"resolution_id", strings.TrimSpace(ballot.ResolutionID),
			"voter_id", strings.TrimSpace(ballot.VoterID),
		)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.conn(ctx).
		Where("id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, r.logError("voting_repo_get_ballot_failed", err, "ballot_id", strings.TrimSpace(ballotID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetBallotByIdentity(
	ctx context.Context,
	resolutionID string,
	voterID string,
) (entities.Ballot, bool, error) {
	var row ballotModel
	err := r.conn(ctx).
		Where("resolution_id = ?", strings.TrimSpace(resolutionID)).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.logError("voting_repo_get_ballot_by_identity_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListBallotsByResolution(ctx context.Context, resolutionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.conn(ctx).
		Where("resolution_id = ?", strings.TrimSpace(resolutionID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_ballots_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
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
		return ports.ResolutionProjection{}, r.logError("voting_repo_get_resolution_failed", err,
			"resolution_id", strings.TrimSpace(resolutionID),
		)
	}
	return ports.ResolutionProjection{
		ResolutionID: row.ID,
		Status:       row.Status,
	}, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := jsonMarshal(envelope)
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
		return r.logError("voting_repo_append_outbox_failed", create.Error,
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
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err)
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
		return r.logError("voting_repo_mark_outbox_published_failed", update.Error,
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
		"module", "council-records/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type ballotModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	ResolutionID     string    `gorm:"column:resolution_id;uniqueIndex:idx_ballots_identity,priority:1"`
	VoterID          string    `gorm:"column:voter_id;uniqueIndex:idx_ballots_identity,priority:2"`
	Choice           string    `gorm:"column:choice"`
	Impeded          bool      `gorm:"column:impeded"`
	ImpedimentReason string    `gorm:"column:impediment_reason"`
	CastAt           time.Time `gorm:"column:cast_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		ID:               strings.TrimSpace(ballot.BallotID),
		ResolutionID:     strings.TrimSpace(ballot.ResolutionID),
		VoterID:          strings.TrimSpace(ballot.VoterID),
		Choice:           string(ballot.Choice),
		Impeded:          ballot.Impeded,
		ImpedimentReason: strings.TrimSpace(ballot.ImpedimentReason),
		CastAt:           ballot.CastAt.UTC(),
		UpdatedAt:        ballot.UpdatedAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:         m.ID,
		ResolutionID:     m.ResolutionID,
		VoterID:          m.VoterID,
		Choice:           entities.BallotChoice(m.Choice),
		Impeded:          m.Impeded,
		ImpedimentReason: m.ImpedimentReason,
		CastAt:           m.CastAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type resolutionProjectionModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	Kind   string `gorm:"column:kind"`
	Status string `gorm:"column:status"`
}

func (resolutionProjectionModel) TableName() string {
	return "documents"
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
	return "voting_outbox"
}
