package entities

import (
	"strings"
	"time"
)

type RevocationScope string

const (
	RevocationScopeTotal   RevocationScope = "total"
	RevocationScopePartial RevocationScope = "partial"
)

func (s RevocationScope) Valid() bool {
	return s == RevocationScopeTotal || s == RevocationScopePartial
}

// Revocation is one directed edge in the graph: the revoking resolution
// strikes the original, either entirely or article by article. For a given
// original at most one total edge may ever exist; partial edges accumulate.
type Revocation struct {
	RevocationID         string
	OriginalResolutionID string
	RevokingResolutionID string
	Scope                RevocationScope
	AffectedArticles     []string
	Reason               string
	EffectiveDate        time.Time
	CreatedBy            string
	CreatedAt            time.Time
}

// ValidateShape checks the field-level rules that do not depend on stored
// state: both endpoints present, a known scope, a non-empty reason, and
// article references present exactly when the scope is partial.
func (r Revocation) ValidateShape() bool {
	if strings.TrimSpace(r.OriginalResolutionID) == "" ||
		strings.TrimSpace(r.RevokingResolutionID) == "" {
		return false
	}
	if !r.Scope.Valid() || strings.TrimSpace(r.Reason) == "" {
		return false
	}
	if r.Scope == RevocationScopeTotal && len(r.AffectedArticles) != 0 {
		return false
	}
	return true
}

// ArticleText is the slice of resolution content the overlay operates on.
type ArticleText struct {
	Number  string
	Heading string
	Body    string
}

// EffectiveArticle is one article with its overlay state as of a given date.
type EffectiveArticle struct {
	Number        string
	Heading       string
	Body          string
	Revoked       bool
	RevokedBy     string
	EffectiveDate time.Time
}

// EffectiveText is the projection of a resolution's current content with the
// accumulated revocations applied. Never persisted; always recomputed.
type EffectiveText struct {
	DocumentID     string
	AsOf           time.Time
	TotallyRevoked bool
	Articles       []EffectiveArticle
}

// ResolveEffectiveText overlays the revocations effective on or before asOf
// onto the article list. A total revocation strikes every article; partial
// revocations strike only the referenced article numbers. Later edges win
// when several strike the same article, which only affects the attributed
// revoker, not the revoked flag.
func ResolveEffectiveText(
	documentID string,
	articles []ArticleText,
	revocations []Revocation,
	asOf time.Time,
) EffectiveText {
	result := EffectiveText{
		DocumentID: documentID,
		AsOf:       asOf,
		Articles:   make([]EffectiveArticle, 0, len(articles)),
	}
	for _, article := range articles {
		result.Articles = append(result.Articles, EffectiveArticle{
			Number:  article.Number,
			Heading: article.Heading,
			Body:    article.Body,
		})
	}

	for _, revocation := range revocations {
		if revocation.EffectiveDate.After(asOf) {
			continue
		}
		switch revocation.Scope {
		case RevocationScopeTotal:
			result.TotallyRevoked = true
			for i := range result.Articles {
				result.Articles[i].Revoked = true
				result.Articles[i].RevokedBy = revocation.RevokingResolutionID
				result.Articles[i].EffectiveDate = revocation.EffectiveDate
			}
		case RevocationScopePartial:
			for _, number := range revocation.AffectedArticles {
				number = strings.TrimSpace(number)
				for i := range result.Articles {
					if result.Articles[i].Number != number {
						continue
					}
					result.Articles[i].Revoked = true
					result.Articles[i].RevokedBy = revocation.RevokingResolutionID
					result.Articles[i].EffectiveDate = revocation.EffectiveDate
				}
			}
		}
	}
	return result
}
