package queries

import (
	"context"
	"log/slog"
	"strings"

	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"
)

// GraphQueryUseCase answers the two adjacency directions: who revoked me,
// whom did I revoke.
type GraphQueryUseCase struct {
	Revocations ports.RevocationRepository
	Logger      *slog.Logger
}

func (uc GraphQueryUseCase) IncomingRevocations(ctx context.Context, documentID string) ([]entities.Revocation, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domainerrors.ErrInvalidRevocationInput
	}
	return uc.Revocations.ListByOriginal(ctx, documentID)
}

func (uc GraphQueryUseCase) OutgoingRevocations(ctx context.Context, documentID string) ([]entities.Revocation, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domainerrors.ErrInvalidRevocationInput
	}
	return uc.Revocations.ListByRevoker(ctx, documentID)
}
