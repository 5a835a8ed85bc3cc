package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"concilium/contexts/council-records/document-engine/application/commands"
	"concilium/contexts/council-records/document-engine/application/queries"
	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	httptransport "concilium/contexts/council-records/document-engine/transport/http"
)

type Handler struct {
	Lifecycle    commands.LifecycleUseCase
	Reviews      commands.ReviewUseCase
	Versions     queries.VersionQueryUseCase
	ReviewReads  queries.ReviewQueryUseCase
	Publications queries.PublicationQueryUseCase
	Logger       *slog.Logger
}

func (h Handler) CreateDocumentHandler(
	ctx context.Context,
	actorID string,
	req httptransport.CreateDocumentRequest,
) (httptransport.DocumentResponse, error) {
	document, err := h.Lifecycle.CreateDocument(ctx, commands.CreateDocumentCommand{
		Kind:          entities.DocumentKind(req.Kind),
		DisplayNumber: req.DisplayNumber,
		ActorID:       actorID,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return documentResponse(document), nil
}

func (h Handler) GetDocumentHandler(ctx context.Context, documentID string) (httptransport.DocumentResponse, error) {
	document, err := h.Versions.GetDocument(ctx, documentID)
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return documentResponse(document), nil
}

func (h Handler) SubmitVersionHandler(
	ctx context.Context,
	documentID string,
	actorID string,
	req httptransport.SubmitVersionRequest,
) (httptransport.SubmitVersionResponse, error) {
	var content entities.DocumentContent
	if len(req.Content) > 0 {
		if err := json.Unmarshal(req.Content, &content); err != nil {
			return httptransport.SubmitVersionResponse{}, domainerrors.ErrInvalidDocumentInput
		}
	}
	result, err := h.Lifecycle.SubmitForReview(ctx, commands.SubmitForReviewCommand{
		DocumentID:    documentID,
		AuthorID:      actorID,
		Content:       content,
		ChangeSummary: req.ChangeSummary,
	})
	if err != nil {
		return httptransport.SubmitVersionResponse{}, err
	}
	version, err := versionResponse(result.Snapshot)
	if err != nil {
		return httptransport.SubmitVersionResponse{}, err
	}
	return httptransport.SubmitVersionResponse{
		Document: documentResponse(result.Document),
		Version:  version,
	}, nil
}

func (h Handler) ApproveHandler(ctx context.Context, documentID string, actorID string) (httptransport.DocumentResponse, error) {
	document, err := h.Lifecycle.Approve(ctx, commands.ApproveCommand{
		DocumentID: documentID,
		ApproverID: actorID,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return documentResponse(document), nil
}

func (h Handler) CloseVotingHandler(ctx context.Context, documentID string, actorID string) (httptransport.DocumentResponse, error) {
	document, err := h.Lifecycle.CloseVoting(ctx, commands.CloseVotingCommand{
		DocumentID: documentID,
		ActorID:    actorID,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return documentResponse(document), nil
}

func (h Handler) RecordPublicationHandler(
	ctx context.Context,
	documentID string,
	actorID string,
	req httptransport.RecordPublicationRequest,
) (httptransport.PublicationResponse, error) {
	publishedAt := time.Time{}
	if req.PublishedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PublishedAt)
		if err != nil {
			return httptransport.PublicationResponse{}, domainerrors.ErrInvalidPublication
		}
		publishedAt = parsed
	}
	record, err := h.Lifecycle.RecordPublication(ctx, documentID, actorID, commands.PublicationInput{
		Venue:       entities.PublicationVenue(req.Venue),
		PublishedAt: publishedAt,
		Page:        req.Page,
		Edition:     req.Edition,
		URL:         req.URL,
	})
	if err != nil {
		return httptransport.PublicationResponse{}, err
	}
	return publicationResponse(record), nil
}

func (h Handler) GetVersionHandler(ctx context.Context, documentID string, versionNumber int) (httptransport.VersionResponse, error) {
	snapshot, err := h.Versions.GetVersion(ctx, documentID, versionNumber)
	if err != nil {
		return httptransport.VersionResponse{}, err
	}
	return versionResponse(snapshot)
}

func (h Handler) ListVersionsHandler(ctx context.Context, documentID string) ([]httptransport.VersionResponse, error) {
	snapshots, err := h.Versions.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.VersionResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		item, err := versionResponse(snapshot)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (h Handler) DiffVersionsHandler(
	ctx context.Context,
	documentID string,
	fromVersion int,
	toVersion int,
) (httptransport.VersionDiffResponse, error) {
	diff, err := h.Versions.Diff(ctx, queries.VersionDiffQuery{
		DocumentID:  documentID,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
	})
	if err != nil {
		return httptransport.VersionDiffResponse{}, err
	}
	return httptransport.VersionDiffResponse{
		DocumentID:           diff.DocumentID,
		FromVersion:          diff.FromVersion,
		ToVersion:            diff.ToVersion,
		AgendaChanged:        diff.AgendaChanged,
		ArticlesChanged:      diff.ArticlesChanged,
		AttendanceChanged:    diff.AttendanceChanged,
		DeliberationsChanged: diff.DeliberationsChanged,
		TextChanged:          diff.TextChanged,
	}, nil
}

func (h Handler) AddCommentHandler(
	ctx context.Context,
	documentID string,
	actorID string,
	req httptransport.AddCommentRequest,
) (httptransport.CommentResponse, error) {
	comment, err := h.Reviews.AddComment(ctx, commands.AddCommentCommand{
		DocumentID:      documentID,
		Section:         entities.DocumentSection(req.Section),
		Body:            req.Body,
		SuggestedChange: req.SuggestedChange,
		LineReference:   req.LineReference,
		CreatedBy:       actorID,
	})
	if err != nil {
		return httptransport.CommentResponse{}, err
	}
	return commentResponse(comment), nil
}

func (h Handler) RespondCommentHandler(
	ctx context.Context,
	commentID string,
	actorID string,
	req httptransport.RespondCommentRequest,
) (httptransport.CommentResponse, error) {
	comment, err := h.Reviews.Respond(ctx, commands.RespondCommand{
		CommentID:    commentID,
		ResponderID:  actorID,
		Outcome:      entities.ReviewStatus(req.Outcome),
		ResponseText: req.ResponseText,
	})
	if err != nil {
		return httptransport.CommentResponse{}, err
	}
	return commentResponse(comment), nil
}

func (h Handler) ListCommentsHandler(ctx context.Context, documentID string) ([]httptransport.CommentResponse, error) {
	comments, err := h.ReviewReads.ListComments(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentResponse(comment))
	}
	return items, nil
}

func (h Handler) PendingCountHandler(ctx context.Context, documentID string) (httptransport.PendingCountResponse, error) {
	count, err := h.ReviewReads.PendingCount(ctx, documentID)
	if err != nil {
		return httptransport.PendingCountResponse{}, err
	}
	return httptransport.PendingCountResponse{
		DocumentID:   documentID,
		PendingCount: count,
	}, nil
}

func (h Handler) ListPublicationsHandler(ctx context.Context, documentID string) ([]httptransport.PublicationResponse, error) {
	records, err := h.Publications.ListForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.PublicationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, publicationResponse(record))
	}
	return items, nil
}

func (h Handler) ListLedgerHandler(ctx context.Context, limit int) ([]httptransport.PublicationResponse, error) {
	records, err := h.Publications.ListLedger(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.PublicationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, publicationResponse(record))
	}
	return items, nil
}

func documentResponse(document entities.Document) httptransport.DocumentResponse {
	return httptransport.DocumentResponse{
		DocumentID:     document.DocumentID,
		Kind:           string(document.Kind),
		DisplayNumber:  document.DisplayNumber,
		Status:         string(document.Status),
		CurrentVersion: document.CurrentVersion,
		CreatedBy:      document.CreatedBy,
		CreatedAt:      document.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      document.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func versionResponse(snapshot entities.VersionSnapshot) (httptransport.VersionResponse, error) {
	content, err := json.Marshal(snapshot.Content)
	if err != nil {
		return httptransport.VersionResponse{}, err
	}
	return httptransport.VersionResponse{
		DocumentID:    snapshot.DocumentID,
		VersionNumber: snapshot.VersionNumber,
		Content:       content,
		AuthorID:      snapshot.AuthorID,
		ChangeSummary: snapshot.ChangeSummary,
		CreatedAt:     snapshot.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func commentResponse(comment entities.ReviewComment) httptransport.CommentResponse {
	respondedAt := ""
	if comment.RespondedAt != nil {
		respondedAt = comment.RespondedAt.UTC().Format(time.RFC3339)
	}
	return httptransport.CommentResponse{
		CommentID:       comment.CommentID,
		DocumentID:      comment.DocumentID,
		Section:         string(comment.Section),
		LineReference:   comment.LineReference,
		Body:            comment.Body,
		SuggestedChange: comment.SuggestedChange,
		Status:          string(comment.Status),
		Response:        comment.Response,
		RespondedBy:     comment.RespondedBy,
		RespondedAt:     respondedAt,
		CreatedBy:       comment.CreatedBy,
		CreatedAt:       comment.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func publicationResponse(record entities.PublicationRecord) httptransport.PublicationResponse {
	return httptransport.PublicationResponse{
		PublicationID: record.PublicationID,
		DocumentID:    record.DocumentID,
		Venue:         string(record.Venue),
		PublishedAt:   record.PublishedAt.UTC().Format(time.RFC3339),
		Page:          record.Page,
		Edition:       record.Edition,
		URL:           record.URL,
		PublishedBy:   record.PublishedBy,
	}
}
