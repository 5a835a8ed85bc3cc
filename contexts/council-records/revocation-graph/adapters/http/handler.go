package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"concilium/contexts/council-records/revocation-graph/application/commands"
	"concilium/contexts/council-records/revocation-graph/application/queries"
	"concilium/contexts/council-records/revocation-graph/domain/entities"
	domainerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	httptransport "concilium/contexts/council-records/revocation-graph/transport/http"
)

type Handler struct {
	Revocations   commands.RevocationUseCase
	Graph         queries.GraphQueryUseCase
	EffectiveText queries.EffectiveTextUseCase
	Logger        *slog.Logger
}

func (h Handler) RecordRevocationHandler(
	ctx context.Context,
	originalResolutionID string,
	actorID string,
	req httptransport.RecordRevocationRequest,
) (httptransport.RevocationResponse, error) {
	effectiveDate := time.Time{}
	if req.EffectiveDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.EffectiveDate)
		if err != nil {
			return httptransport.RevocationResponse{}, domainerrors.ErrInvalidRevocationInput
		}
		effectiveDate = parsed
	}
	revocation, err := h.Revocations.RecordRevocation(ctx, commands.RecordRevocationCommand{
		OriginalResolutionID: originalResolutionID,
		RevokingResolutionID: req.RevokingResolutionID,
		Scope:                entities.RevocationScope(req.Scope),
		AffectedArticles:     req.AffectedArticles,
		Reason:               req.Reason,
		EffectiveDate:        effectiveDate,
		ActorID:              actorID,
	})
	if err != nil {
		return httptransport.RevocationResponse{}, err
	}
	return revocationResponse(revocation), nil
}

func (h Handler) IncomingRevocationsHandler(ctx context.Context, documentID string) ([]httptransport.RevocationResponse, error) {
	revocations, err := h.Graph.IncomingRevocations(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return revocationResponses(revocations), nil
}

func (h Handler) OutgoingRevocationsHandler(ctx context.Context, documentID string) ([]httptransport.RevocationResponse, error) {
	revocations, err := h.Graph.OutgoingRevocations(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return revocationResponses(revocations), nil
}

func (h Handler) EffectiveTextHandler(
	ctx context.Context,
	documentID string,
	asOf string,
) (httptransport.EffectiveTextResponse, error) {
	asOfTime := time.Time{}
	if asOf != "" {
		parsed, err := time.Parse(time.RFC3339, asOf)
		if err != nil {
			return httptransport.EffectiveTextResponse{}, domainerrors.ErrInvalidRevocationInput
		}
		asOfTime = parsed
	}
	projection, err := h.EffectiveText.ResolveEffectiveText(ctx, documentID, asOfTime)
	if err != nil {
		return httptransport.EffectiveTextResponse{}, err
	}

	articles := make([]httptransport.EffectiveArticleResponse, 0, len(projection.Articles))
	for _, article := range projection.Articles {
		effectiveDate := ""
		if !article.EffectiveDate.IsZero() {
			effectiveDate = article.EffectiveDate.UTC().Format(time.RFC3339)
		}
		articles = append(articles, httptransport.EffectiveArticleResponse{
			Number:        article.Number,
			Heading:       article.Heading,
			Body:          article.Body,
			Revoked:       article.Revoked,
			RevokedBy:     article.RevokedBy,
			EffectiveDate: effectiveDate,
		})
	}
	return httptransport.EffectiveTextResponse{
		DocumentID:     projection.DocumentID,
		AsOf:           projection.AsOf.UTC().Format(time.RFC3339),
		TotallyRevoked: projection.TotallyRevoked,
		Articles:       articles,
	}, nil
}

func revocationResponse(revocation entities.Revocation) httptransport.RevocationResponse {
	return httptransport.RevocationResponse{
		RevocationID:         revocation.RevocationID,
		OriginalResolutionID: revocation.OriginalResolutionID,
		RevokingResolutionID: revocation.RevokingResolutionID,
		Scope:                string(revocation.Scope),
		AffectedArticles:     revocation.AffectedArticles,
		Reason:               revocation.Reason,
		EffectiveDate:        revocation.EffectiveDate.UTC().Format(time.RFC3339),
		CreatedBy:            revocation.CreatedBy,
		CreatedAt:            revocation.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func revocationResponses(revocations []entities.Revocation) []httptransport.RevocationResponse {
	items := make([]httptransport.RevocationResponse, 0, len(revocations))
	for _, revocation := range revocations {
		items = append(items, revocationResponse(revocation))
	}
	return items
}
