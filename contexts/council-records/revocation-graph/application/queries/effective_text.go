package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "concilium/contexts/council-records/revocation-graph/application"
	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"
)

// EffectiveTextUseCase projects a resolution's current articles through the
// accumulated revocations effective as of a given date. The projection is
// recomputed on every call and never stored.
type EffectiveTextUseCase struct {
	Revocations ports.RevocationRepository
	Content     ports.ResolutionContentReader
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (uc EffectiveTextUseCase) ResolveEffectiveText(
	ctx context.Context,
	documentID string,
	asOf time.Time,
) (entities.EffectiveText, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return entities.EffectiveText{}, domainerrors.ErrInvalidRevocationInput
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
		if uc.Clock != nil {
			asOf = uc.Clock.Now().UTC()
		}
	}

	articles, err := uc.Content.ArticlesFor(ctx, documentID)
	if err != nil {
		return entities.EffectiveText{}, fmt.Errorf("%w: %w", domainerrors.ErrContentUnavailable, err)
	}
	revocations, err := uc.Revocations.ListByOriginal(ctx, documentID)
	if err != nil {
		return entities.EffectiveText{}, err
	}

	projection := entities.ResolveEffectiveText(documentID, articles, revocations, asOf.UTC())
	logger.Debug("effective text resolved",
		"event", "revocation_effective_text_resolved",
		"module", "council-records/revocation-graph",
		"layer", "application",
		"document_id", documentID,
		"revocation_count", len(revocations),
		"totally_revoked", projection.TotallyRevoked,
	)
	return projection, nil
}
