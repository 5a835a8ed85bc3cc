package errors

import "errors"

var (
	ErrInvalidDocumentInput  = errors.New("invalid document input")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDisplayNumberTaken    = errors.New("display number is already assigned")
	ErrInvalidTransition     = errors.New("lifecycle transition is not allowed from current status")
	ErrPendingReviewsExist   = errors.New("pending review comments must be resolved")
	ErrVoteNotApproved       = errors.New("vote result is not approved")
	ErrNoQuorum              = errors.New("vote has no quorum")
	ErrNotApproved           = errors.New("document is not approved")
	ErrNotPublished          = errors.New("document is not published")
	ErrAlreadyRevoked        = errors.New("document is already revoked")
	ErrVersionNotFound       = errors.New("version not found")
	ErrVersionConflict       = errors.New("version number already allocated")
	ErrCommentNotFound       = errors.New("review comment not found")
	ErrAlreadyResponded      = errors.New("review comment already responded")
	ErrEmptyResponse         = errors.New("response text is empty")
	ErrInvalidPublication    = errors.New("invalid publication record")
	ErrConflict              = errors.New("document conflict")
	ErrAuditUnavailable      = errors.New("audit log is unavailable")
	ErrVoteResultUnavailable = errors.New("vote result is unavailable")
)
