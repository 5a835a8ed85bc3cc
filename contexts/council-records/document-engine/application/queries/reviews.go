package queries

import (
	"context"
	"log/slog"
	"strings"

	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
)

type ReviewQueryUseCase struct {
	Reviews ports.ReviewRepository
	Logger  *slog.Logger
}

func (uc ReviewQueryUseCase) ListComments(ctx context.Context, documentID string) ([]entities.ReviewComment, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Reviews.ListCommentsByDocument(ctx, documentID)
}

func (uc ReviewQueryUseCase) PendingCount(ctx context.Context, documentID string) (int, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return 0, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Reviews.PendingCount(ctx, documentID)
}
