package entities

import (
	"strings"
	"time"
)

type DocumentKind string

const (
	DocumentKindMinutes    DocumentKind = "minutes"
	DocumentKindResolution DocumentKind = "resolution"
)

func (k DocumentKind) Valid() bool {
	return k == DocumentKindMinutes || k == DocumentKindResolution
}

type DocumentStatus string

const (
	DocumentStatusDraft       DocumentStatus = "draft"
	DocumentStatusUnderReview DocumentStatus = "under_review"
	DocumentStatusVotingOpen  DocumentStatus = "voting_open"
	DocumentStatusApproved    DocumentStatus = "approved"
	DocumentStatusRejected    DocumentStatus = "rejected"
	DocumentStatusPublished   DocumentStatus = "published"
	DocumentStatusRevoked     DocumentStatus = "revoked"
)

// transitions is the closed per-kind status machine. Illegal transitions are
// rejected by construction instead of scattered conditionals.
var transitions = map[DocumentKind]map[DocumentStatus][]DocumentStatus{
	DocumentKindMinutes: {
		DocumentStatusDraft:       {DocumentStatusUnderReview},
		DocumentStatusUnderReview: {DocumentStatusApproved},
		DocumentStatusApproved:    {DocumentStatusPublished},
	},
	DocumentKindResolution: {
		DocumentStatusDraft:      {DocumentStatusVotingOpen},
		DocumentStatusVotingOpen: {DocumentStatusApproved, DocumentStatusRejected},
		DocumentStatusApproved:   {DocumentStatusPublished},
		DocumentStatusPublished:  {DocumentStatusRevoked},
	},
}

// Document is the root record for an Ata (minutes) or Resolução (resolution).
// CurrentVersion always equals the count of stored snapshots and never
// decreases. DisplayNumber is the human-facing sequence string, immutable
// once assigned.
type Document struct {
	DocumentID     string
	Kind           DocumentKind
	DisplayNumber  string
	Status         DocumentStatus
	CurrentVersion int
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d Document) CanTransition(to DocumentStatus) bool {
	for _, next := range transitions[d.Kind][d.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether new version snapshots may still be written.
// Once a vote opens or the document advances further, its text is frozen.
func (d Document) Editable() bool {
	return d.Status == DocumentStatusDraft || d.Status == DocumentStatusUnderReview
}

// FirstSubmissionStatus is the status a draft advances to when its first
// version is submitted: review for minutes, an open vote for resolutions.
func (d Document) FirstSubmissionStatus() DocumentStatus {
	if d.Kind == DocumentKindResolution {
		return DocumentStatusVotingOpen
	}
	return DocumentStatusUnderReview
}

func (d Document) ValidateCreate() bool {
	return d.Kind.Valid() &&
		strings.TrimSpace(d.DisplayNumber) != "" &&
		strings.TrimSpace(d.CreatedBy) != ""
}
