package errors

import "errors"

var (
	ErrInvalidRevocationInput   = errors.New("invalid revocation input")
	ErrSelfRevocation           = errors.New("resolution cannot revoke itself")
	ErrRevokerNotEligible       = errors.New("revoking resolution is not approved or published")
	ErrAlreadyTotallyRevoked    = errors.New("original resolution already totally revoked")
	ErrMissingArticleReferences = errors.New("partial revocation requires article references")
	ErrOriginalNotPublished     = errors.New("original resolution is not published")
	ErrResolutionNotFound       = errors.New("resolution not found")
	ErrRevocationNotFound       = errors.New("revocation not found")
	ErrConflict                 = errors.New("revocation conflicts with existing state")
	ErrContentUnavailable       = errors.New("resolution content unavailable")
)
