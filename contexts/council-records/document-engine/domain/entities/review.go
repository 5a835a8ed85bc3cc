package entities

import (
	"strings"
	"time"
)

type DocumentSection string

const (
	SectionAgenda        DocumentSection = "agenda"
	SectionArticles      DocumentSection = "articles"
	SectionAttendance    DocumentSection = "attendance"
	SectionDeliberations DocumentSection = "deliberations"
	SectionPreamble      DocumentSection = "preamble"
	SectionClosing       DocumentSection = "closing"
)

func (s DocumentSection) Valid() bool {
	switch s {
	case SectionAgenda, SectionArticles, SectionAttendance,
		SectionDeliberations, SectionPreamble, SectionClosing:
		return true
	default:
		return false
	}
}

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusAccepted ReviewStatus = "accepted"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ReviewComment is reviewer commentary on one section of a document. It is
// independent of versioning: accepting a comment never creates a version; a
// human author submits the incorporating version explicitly.
//
// Response, RespondedBy, and RespondedAt are all-or-nothing, and a comment
// leaves pending exactly once.
type ReviewComment struct {
	CommentID       string
	DocumentID      string
	Section         DocumentSection
	LineReference   *int
	Body            string
	SuggestedChange string
	Status          ReviewStatus
	Response        string
	RespondedBy     string
	RespondedAt     *time.Time
	CreatedBy       string
	CreatedAt       time.Time
}

func (c ReviewComment) ValidateCreate() bool {
	return strings.TrimSpace(c.DocumentID) != "" &&
		c.Section.Valid() &&
		strings.TrimSpace(c.Body) != "" &&
		strings.TrimSpace(c.CreatedBy) != "" &&
		(c.LineReference == nil || *c.LineReference > 0)
}
