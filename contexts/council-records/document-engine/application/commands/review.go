package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "concilium/contexts/council-records/document-engine/application"
	"concilium/contexts/council-records/document-engine/domain/entities"
	domainerrors "concilium/contexts/council-records/document-engine/domain/errors"
	"concilium/contexts/council-records/document-engine/ports"
)

type AddCommentCommand struct {
	DocumentID      string
	Section         entities.DocumentSection
	Body            string
	SuggestedChange string
	LineReference   *int
	CreatedBy       string
}

type RespondCommand struct {
	CommentID    string
	ResponderID  string
	Outcome      entities.ReviewStatus
	ResponseText string
}

// ReviewUseCase manages the per-document comment thread. Review state feeds
// the lifecycle only through the pending-comment gate on minutes approval;
// accepting a comment never touches document content or status.
type ReviewUseCase struct {
	Reviews   ports.ReviewRepository
	Documents ports.DocumentRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc ReviewUseCase) AddComment(ctx context.Context, cmd AddCommentCommand) (entities.ReviewComment, error) {
	logger := application.ResolveLogger(uc.Logger)

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	comment := entities.ReviewComment{
		DocumentID:      strings.TrimSpace(cmd.DocumentID),
		Section:         cmd.Section,
		LineReference:   cmd.LineReference,
		Body:            strings.TrimSpace(cmd.Body),
		SuggestedChange: strings.TrimSpace(cmd.SuggestedChange),
		Status:          entities.ReviewStatusPending,
		CreatedBy:       strings.TrimSpace(cmd.CreatedBy),
		CreatedAt:       now,
	}
	if !comment.ValidateCreate() {
		return entities.ReviewComment{}, domainerrors.ErrInvalidDocumentInput
	}

	if _, err := uc.Documents.GetDocument(ctx, comment.DocumentID); err != nil {
		return entities.ReviewComment{}, err
	}

	commentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ReviewComment{}, err
	}
	comment.CommentID = commentID

	if err := uc.Reviews.SaveComment(ctx, comment); err != nil {
		return entities.ReviewComment{}, err
	}

	logger.Info("review comment added",
		"event", "records_review_comment_added",
		"module", "council-records/document-engine",
		"layer", "application",
		"document_id", comment.DocumentID,
		"comment_id", comment.CommentID,
		"section", string(comment.Section),
	)
	return comment, nil
}

// Respond settles a pending comment exactly once. The response triple
// (text, responder, timestamp) is all-or-nothing with the outcome.
func (uc ReviewUseCase) Respond(ctx context.Context, cmd RespondCommand) (entities.ReviewComment, error) {
	logger := application.ResolveLogger(uc.Logger)

	commentID := strings.TrimSpace(cmd.CommentID)
	responderID := strings.TrimSpace(cmd.ResponderID)
	responseText := strings.TrimSpace(cmd.ResponseText)
	if commentID == "" || responderID == "" {
		return entities.ReviewComment{}, domainerrors.ErrInvalidDocumentInput
	}
	if cmd.Outcome != entities.ReviewStatusAccepted && cmd.Outcome != entities.ReviewStatusRejected {
		return entities.ReviewComment{}, domainerrors.ErrInvalidDocumentInput
	}
	if responseText == "" {
		return entities.ReviewComment{}, domainerrors.ErrEmptyResponse
	}

	comment, err := uc.Reviews.GetComment(ctx, commentID)
	if err != nil {
		return entities.ReviewComment{}, err
	}
	if comment.Status != entities.ReviewStatusPending {
		return entities.ReviewComment{}, domainerrors.ErrAlreadyResponded
	}

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	comment.Status = cmd.Outcome
	comment.Response = responseText
	comment.RespondedBy = responderID
	comment.RespondedAt = &now

	if err := uc.Reviews.SaveComment(ctx, comment); err != nil {
		return entities.ReviewComment{}, err
	}

	logger.Info("review comment responded",
		"event", "records_review_comment_responded",
		"module", "council-records/document-engine",
		"layer", "application",
		"comment_id", comment.CommentID,
		"document_id", comment.DocumentID,
		"outcome", string(comment.Status),
	)
	return comment, nil
}
