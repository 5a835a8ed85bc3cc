package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecordRevocationRequest struct {
	RevokingResolutionID string   `json:"revoking_resolution_id"`
	Scope                string   `json:"scope"`
	AffectedArticles     []string `json:"affected_articles,omitempty"`
	Reason               string   `json:"reason"`
	EffectiveDate        string   `json:"effective_date,omitempty"`
}

type RevocationResponse struct {
	RevocationID         string   `json:"revocation_id"`
	OriginalResolutionID string   `json:"original_resolution_id"`
	RevokingResolutionID string   `json:"revoking_resolution_id"`
	Scope                string   `json:"scope"`
	AffectedArticles     []string `json:"affected_articles,omitempty"`
	Reason               string   `json:"reason"`
	EffectiveDate        string   `json:"effective_date"`
	CreatedBy            string   `json:"created_by"`
	CreatedAt            string   `json:"created_at"`
}

type EffectiveArticleResponse struct {
	Number        string `json:"number"`
	Heading       string `json:"heading,omitempty"`
	Body          string `json:"body"`
	Revoked       bool   `json:"revoked"`
	RevokedBy     string `json:"revoked_by,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
}

type EffectiveTextResponse struct {
	DocumentID     string                     `json:"document_id"`
	AsOf           string                     `json:"as_of"`
	TotallyRevoked bool                       `json:"totally_revoked"`
	Articles       []EffectiveArticleResponse `json:"articles"`
}
