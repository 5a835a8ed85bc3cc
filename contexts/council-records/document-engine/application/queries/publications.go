package queries

import (
	"context"
	"log/slog"
	"strings"

	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
)

const defaultLedgerLimit = 100

type PublicationQueryUseCase struct {
	Publications ports.PublicationRepository
	Logger       *slog.Logger
}

func (uc PublicationQueryUseCase) ListForDocument(ctx context.Context, documentID string) ([]entities.PublicationRecord, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Publications.ListPublicationsByDocument(ctx, documentID)
}

// ListLedger returns the newest publication records across every document,
// for audit consumers.
func (uc PublicationQueryUseCase) ListLedger(ctx context.Context, limit int) ([]entities.PublicationRecord, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	return uc.Publications.ListPublications(ctx, limit)
}
