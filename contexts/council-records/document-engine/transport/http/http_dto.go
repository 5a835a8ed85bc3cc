package http

import "encoding/json"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateDocumentRequest struct {
	Kind          string `json:"kind"`
	DisplayNumber string `json:"display_number"`
}

type DocumentResponse struct {
	DocumentID     string `json:"document_id"`
	Kind           string `json:"kind"`
	DisplayNumber  string `json:"display_number"`
	Status         string `json:"status"`
	CurrentVersion int    `json:"current_version"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type SubmitVersionRequest struct {
	Content       json.RawMessage `json:"content"`
	ChangeSummary string          `json:"change_summary,omitempty"`
}

type SubmitVersionResponse struct {
	Document DocumentResponse `json:"document"`
	Version  VersionResponse  `json:"version"`
}

type VersionResponse struct {
	DocumentID    string          `json:"document_id"`
	VersionNumber int             `json:"version_number"`
	Content       json.RawMessage `json:"content"`
	AuthorID      string          `json:"author_id"`
	ChangeSummary string          `json:"change_summary,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type VersionDiffResponse struct {
	DocumentID           string `json:"document_id"`
	FromVersion          int    `json:"from_version"`
	ToVersion            int    `json:"to_version"`
	AgendaChanged        bool   `json:"agenda_changed"`
	ArticlesChanged      bool   `json:"articles_changed"`
	AttendanceChanged    bool   `json:"attendance_changed"`
	DeliberationsChanged bool   `json:"deliberations_changed"`
	TextChanged          bool   `json:"text_changed"`
}

type AddCommentRequest struct {
	Section         string `json:"section"`
	Body            string `json:"body"`
	SuggestedChange string `json:"suggested_change,omitempty"`
	LineReference   *int   `json:"line_reference,omitempty"`
}

type RespondCommentRequest struct {
	Outcome      string `json:"outcome"`
	ResponseText string `json:"response_text"`
}

type CommentResponse struct {
	CommentID       string `json:"comment_id"`
	DocumentID      string `json:"document_id"`
	Section         string `json:"section"`
	LineReference   *int   `json:"line_reference,omitempty"`
	Body            string `json:"body"`
	SuggestedChange string `json:"suggested_change,omitempty"`
	Status          string `json:"status"`
	Response        string `json:"response,omitempty"`
	RespondedBy     string `json:"responded_by,omitempty"`
	RespondedAt     string `json:"responded_at,omitempty"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at"`
}

type PendingCountResponse struct {
	DocumentID   string `json:"document_id"`
	PendingCount int    `json:"pending_count"`
}

type RecordPublicationRequest struct {
	Venue       string `json:"venue"`
	PublishedAt string `json:"published_at,omitempty"`
	Page        string `json:"page,omitempty"`
	Edition     string `json:"edition,omitempty"`
	URL         string `json:"url,omitempty"`
}

type PublicationResponse struct {
	PublicationID string `json:"publication_id"`
	DocumentID    string `json:"document_id"`
	Venue         string `json:"venue"`
	PublishedAt   string `json:"published_at"`
	Page          string `json:"page,omitempty"`
	Edition       string `json:"edition,omitempty"`
	URL           string `json:"url,omitempty"`
	PublishedBy   string `json:"published_by"`
}
