package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "concilium/contexts/council-records/revocation-graph/application"
	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	"concilium/contexts/council-records/revocation-graph/ports"
)

type RecordRevocationCommand struct {
	OriginalResolutionID string
	RevokingResolutionID string
	Scope                entities.RevocationScope
	AffectedArticles     []string
	Reason               string
	EffectiveDate        time.Time
	ActorID              string
}

// RevocationUseCase records revocation edges. A total edge and the lifecycle
// transition it triggers on the original resolution commit atomically; a
// partial edge is a pure graph write, the original stays published.
type RevocationUseCase struct {
	Revocations ports.RevocationRepository
	Resolutions ports.ResolutionReader
	Lifecycle   ports.LifecycleRevoker
	Tx          ports.Transactor
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc RevocationUseCase) RecordRevocation(ctx context.Context, cmd RecordRevocationCommand) (entities.Revocation, error) {
	logger := application.ResolveLogger(uc.Logger)

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	effectiveDate := cmd.EffectiveDate.UTC()
	if effectiveDate.IsZero() {
		effectiveDate = now
	}

	revocation := entities.Revocation{
		OriginalResolutionID: strings.TrimSpace(cmd.OriginalResolutionID),
		RevokingResolutionID: strings.TrimSpace(cmd.RevokingResolutionID),
		Scope:                cmd.Scope,
		AffectedArticles:     trimmedArticles(cmd.AffectedArticles),
		Reason:               strings.TrimSpace(cmd.Reason),
		EffectiveDate:        effectiveDate,
		CreatedBy:            strings.TrimSpace(cmd.ActorID),
		CreatedAt:            now,
	}
	if revocation.OriginalResolutionID != "" &&
		revocation.OriginalResolutionID == revocation.RevokingResolutionID {
		return entities.Revocation{}, domainerrors.ErrSelfRevocation
	}
	if !revocation.ValidateShape() {
		return entities.Revocation{}, domainerrors.ErrInvalidRevocationInput
	}

	revoker, err := uc.Resolutions.GetResolution(ctx, revocation.RevokingResolutionID)
	if err != nil {
		return entities.Revocation{}, err
	}
	if !revokerEligible(revoker.Status) {
		return entities.Revocation{}, domainerrors.ErrRevokerNotEligible
	}

	var saved entities.Revocation
	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if revocation.Scope == entities.RevocationScopeTotal {
			if _, exists, err := uc.Revocations.GetTotalRevocation(ctx, revocation.OriginalResolutionID); err != nil {
				return err
			} else if exists {
				return domainerrors.ErrAlreadyTotallyRevoked
			}
		}
		if revocation.Scope == entities.RevocationScopePartial {
			if len(revocation.AffectedArticles) == 0 {
				return domainerrors.ErrMissingArticleReferences
			}
			original, err := uc.Resolutions.GetResolution(ctx, revocation.OriginalResolutionID)
			if err != nil {
				return err
			}
			if !strings.EqualFold(strings.TrimSpace(original.Status), "published") {
				return domainerrors.ErrOriginalNotPublished
			}
		}

		revocationID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		revocation.RevocationID = revocationID
		if err := uc.Revocations.SaveRevocation(ctx, revocation); err != nil {
			return err
		}

		// The lifecycle transition rides the same transaction; either the
		// edge and the revoked status both commit or neither does.
		if revocation.Scope == entities.RevocationScopeTotal {
			if err := uc.Lifecycle.RevokeResolution(
				ctx,
				revocation.OriginalResolutionID,
				revocation.CreatedBy,
				revocation.Reason,
			); err != nil {
				return err
			}
		}

		if err := uc.appendRevocationEvent(ctx, revocation, now); err != nil {
			return err
		}
		saved = revocation
		return nil
	})
	if err != nil {
		return entities.Revocation{}, err
	}

	logger.Info("revocation recorded",
		"event", "revocation_recorded",
		"module", "council-records/revocation-graph",
		"layer", "application",
		"revocation_id", saved.RevocationID,
		"original_resolution_id", saved.OriginalResolutionID,
		"revoking_resolution_id", saved.RevokingResolutionID,
		"scope", string(saved.Scope),
	)

	// The audit trail for the triggered transition is appended only after the
	// recording transaction has committed. A lagging trail surfaces as an
	// error, but the committed edge and the revoked status stay authoritative.
	if saved.Scope == entities.RevocationScopeTotal {
		if err := uc.Lifecycle.ConfirmRevocation(ctx, saved.OriginalResolutionID, saved.CreatedBy); err != nil {
			logger.Warn("revocation audit trail lagging",
				"event", "revocation_audit_lagging",
				"module", "council-records/revocation-graph",
				"layer", "application",
				"original_resolution_id", saved.OriginalResolutionID,
				"error", err.Error(),
			)
			return saved, err
		}
	}
	return saved, nil
}

func (uc RevocationUseCase) appendRevocationEvent(
	ctx context.Context,
	revocation entities.Revocation,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newRevocationEnvelope(eventID, "revocation.recorded", revocation, occurredAt)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func revokerEligible(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "published":
		return true
	default:
		return false
	}
}

func trimmedArticles(articles []string) []string {
	items := make([]string, 0, len(articles))
	for _, article := range articles {
		article = strings.TrimSpace(article)
		if article == "" {
			continue
		}
		items = append(items, article)
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
