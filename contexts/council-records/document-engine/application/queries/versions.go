package queries

import (
	"context"
	"log/slog"
	"strings"

	application "concilium/contexts/council-records/document-engine/application"
	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
)

type VersionDiffQuery struct {
	DocumentID  string
	FromVersion int
	ToVersion   int
}

// VersionQueryUseCase reads immutable snapshots and derives diffs between
// them. Snapshots are never recomputed or mutated here.
type VersionQueryUseCase struct {
	Documents ports.DocumentRepository
	Versions  ports.VersionRepository
	Logger    *slog.Logger
}

func (uc VersionQueryUseCase) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Documents.GetDocument(ctx, documentID)
}

func (uc VersionQueryUseCase) GetVersion(ctx context.Context, documentID string, versionNumber int) (entities.VersionSnapshot, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" || versionNumber < 1 {
		return entities.VersionSnapshot{}, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Versions.GetSnapshot(ctx, documentID, versionNumber)
}

func (uc VersionQueryUseCase) ListVersions(ctx context.Context, documentID string) ([]entities.VersionSnapshot, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Versions.ListSnapshots(ctx, documentID)
}

func (uc VersionQueryUseCase) Diff(ctx context.Context, query VersionDiffQuery) (entities.VersionDiff, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(query.DocumentID)
	if documentID == "" || query.FromVersion < 1 || query.ToVersion < 1 {
		return entities.VersionDiff{}, domainerrors.ErrInvalidDocumentInput
	}

	from, err := uc.Versions.GetSnapshot(ctx, documentID, query.FromVersion)
	if err != nil {
		return entities.VersionDiff{}, err
	}
	to, err := uc.Versions.GetSnapshot(ctx, documentID, query.ToVersion)
	if err != nil {
		return entities.VersionDiff{}, err
	}

	diff := entities.DiffContents(from, to)
	logger.Debug("version diff computed",
		"event", "records_version_diff_computed",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", documentID,
		"from_version", query.FromVersion,
		"to_version", query.ToVersion,
	)
	return diff, nil
}
