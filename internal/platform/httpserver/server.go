package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	documentengine "concilium/contexts/council-records/document-engine"
	documenterrors "concilium/contexts/council-records/document-engine/domain/errors"
	documenthttp "concilium/contexts/council-records/document-engine/transport/http"
	revocationgraph "concilium/contexts/council-records/revocation-graph"
	revocationerrors "concilium/contexts/council-records/revocation-graph/domain/errors"
	revocationhttp "concilium/contexts/council-records/revocation-graph/transport/http"
	votingengine "concilium/contexts/council-records/voting-engine"
	votingerrors "concilium/contexts/council-records/voting-engine/domain/errors"
	votinghttp "concilium/contexts/council-records/voting-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "concilium/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	documents   documentengine.Module
	voting      votingengine.Module
	revocations revocationgraph.Module
}

func New(
	documents documentengine.Module,
	voting votingengine.Module,
	revocations revocationgraph.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		documents:   documents,
		voting:      voting,
		revocations: revocations,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/records/v1/documents", s.handleCreateDocument)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}", s.handleGetDocument)
	s.mux.HandleFunc("POST /api/records/v1/documents/{document_id}/versions", s.handleSubmitVersion)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/versions", s.handleListVersions)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/versions/diff", s.handleDiffVersions)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/versions/{version_number}", s.handleGetVersion)
	s.mux.HandleFunc("POST /api/records/v1/documents/{document_id}/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/records/v1/documents/{document_id}/close-voting", s.handleCloseVoting)
	s.mux.HandleFunc("POST /api/records/v1/documents/{document_id}/comments", s.handleAddComment)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/comments", s.handleListComments)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/comments/pending-count", s.handlePendingCount)
	s.mux.HandleFunc("POST /api/records/v1/comments/{comment_id}/respond", s.handleRespondComment)
	s.mux.HandleFunc("POST /api/records/v1/documents/{document_id}/publications", s.handleRecordPublication)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/publications", s.handleListPublications)
	s.mux.HandleFunc("GET /api/records/v1/publications", s.handleListLedger)

	s.mux.HandleFunc("POST /api/records/v1/resolutions/{resolution_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("GET /api/records/v1/resolutions/{resolution_id}/result", s.handleVoteResult)

	s.mux.HandleFunc("POST /api/records/v1/resolutions/{resolution_id}/revocations", s.handleRecordRevocation)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/revocations/incoming", s.handleIncomingRevocations)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/revocations/outgoing", s.handleOutgoingRevocations)
	s.mux.HandleFunc("GET /api/records/v1/documents/{document_id}/effective-text", s.handleEffectiveText)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req documenthttp.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.documents.Handler.CreateDocumentHandler(r.Context(), actorID, req)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	resp, err := s.documents.Handler.GetDocumentHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVersion(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req documenthttp.SubmitVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.documents.Handler.SubmitVersionHandler(r.Context(), r.PathValue("document_id"), actorID, req)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.documents.Handler.ListVersionsHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionNumber, err := strconv.Atoi(r.PathValue("version_number"))
	if err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_version", "version_number must be an integer")
		return
	}
	resp, err := s.documents.Handler.GetVersionHandler(r.Context(), r.PathValue("document_id"), versionNumber)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiffVersions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fromVersion, err := strconv.Atoi(query.Get("from"))
	if err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_from", "from must be an integer version number")
		return
	}
	toVersion, err := strconv.Atoi(query.Get("to"))
	if err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_to", "to must be an integer version number")
		return
	}
	resp, err := s.documents.Handler.DiffVersionsHandler(r.Context(), r.PathValue("document_id"), fromVersion, toVersion)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.documents.Handler.ApproveHandler(r.Context(), r.PathValue("document_id"), actorID)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.documents.Handler.CloseVotingHandler(r.Context(), r.PathValue("document_id"), actorID)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req documenthttp.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.documents.Handler.AddCommentHandler(r.Context(), r.PathValue("document_id"), actorID, req)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	resp, err := s.documents.Handler.ListCommentsHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	resp, err := s.documents.Handler.PendingCountHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRespondComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req documenthttp.RespondCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.documents.Handler.RespondCommentHandler(r.Context(), r.PathValue("comment_id"), actorID, req)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordPublication(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req documenthttp.RecordPublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRecordsError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.documents.Handler.RecordPublicationHandler(r.Context(), r.PathValue("document_id"), actorID, req)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPublications(w http.ResponseWriter, r *http.Request) {
	resp, err := s.documents.Handler.ListPublicationsHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeRecordsError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.documents.Handler.ListLedgerHandler(r.Context(), limit)
	if err != nil {
		writeRecordsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req votinghttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.CastBallotHandler(r.Context(), r.PathValue("resolution_id"), voterID, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteResult(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.VoteResultHandler(r.Context(), r.PathValue("resolution_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordRevocation(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req revocationhttp.RecordRevocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRevocationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.revocations.Handler.RecordRevocationHandler(r.Context(), r.PathValue("resolution_id"), actorID, req)
	if err != nil {
		writeRevocationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleIncomingRevocations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.revocations.Handler.IncomingRevocationsHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRevocationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOutgoingRevocations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.revocations.Handler.OutgoingRevocationsHandler(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeRevocationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEffectiveText(w http.ResponseWriter, r *http.Request) {
	resp, err := s.revocations.Handler.EffectiveTextHandler(
		r.Context(),
		r.PathValue("document_id"),
		r.URL.Query().Get("as_of"),
	)
	if err != nil {
		writeRevocationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRecordsDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, documenterrors.ErrInvalidDocumentInput):
		writeRecordsError(w, http.StatusBadRequest, "invalid_document_input", err.Error())
	case errors.Is(err, documenterrors.ErrInvalidPublication):
		writeRecordsError(w, http.StatusBadRequest, "invalid_publication", err.Error())
	case errors.Is(err, documenterrors.ErrEmptyResponse):
		writeRecordsError(w, http.StatusBadRequest, "empty_response", err.Error())
	case errors.Is(err, documenterrors.ErrDocumentNotFound):
		writeRecordsError(w, http.StatusNotFound, "document_not_found", err.Error())
	case errors.Is(err, documenterrors.ErrVersionNotFound):
		writeRecordsError(w, http.StatusNotFound, "version_not_found", err.Error())
	case errors.Is(err, documenterrors.ErrCommentNotFound):
		writeRecordsError(w, http.StatusNotFound, "comment_not_found", err.Error())
	case errors.Is(err, documenterrors.ErrDisplayNumberTaken):
		writeRecordsError(w, http.StatusConflict, "display_number_taken", err.Error())
	case errors.Is(err, documenterrors.ErrVersionConflict):
		writeRecordsError(w, http.StatusConflict, "version_conflict", err.Error())
	case errors.Is(err, documenterrors.ErrAlreadyResponded):
		writeRecordsError(w, http.StatusConflict, "already_responded", err.Error())
	case errors.Is(err, documenterrors.ErrAlreadyRevoked):
		writeRecordsError(w, http.StatusConflict, "already_revoked", err.Error())
	case errors.Is(err, documenterrors.ErrConflict):
		writeRecordsError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, documenterrors.ErrInvalidTransition):
		writeRecordsError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, documenterrors.ErrPendingReviewsExist):
		writeRecordsError(w, http.StatusUnprocessableEntity, "pending_reviews_exist", err.Error())
	case errors.Is(err, documenterrors.ErrVoteNotApproved):
		writeRecordsError(w, http.StatusUnprocessableEntity, "vote_not_approved", err.Error())
	case errors.Is(err, documenterrors.ErrNoQuorum):
		writeRecordsError(w, http.StatusUnprocessableEntity, "no_quorum", err.Error())
	case errors.Is(err, documenterrors.ErrNotApproved):
		writeRecordsError(w, http.StatusUnprocessableEntity, "not_approved", err.Error())
	case errors.Is(err, documenterrors.ErrNotPublished):
		writeRecordsError(w, http.StatusUnprocessableEntity, "not_published", err.Error())
	case errors.Is(err, documenterrors.ErrAuditUnavailable):
		writeRecordsError(w, http.StatusServiceUnavailable, "audit_unavailable", err.Error())
	case errors.Is(err, documenterrors.ErrVoteResultUnavailable):
		writeRecordsError(w, http.StatusServiceUnavailable, "vote_result_unavailable", err.Error())
	default:
		writeRecordsError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrInvalidBallotInput),
		errors.Is(err, votingerrors.ErrImpedimentReasonRequired):
		writeVotingError(w, http.StatusBadRequest, "invalid_ballot", err.Error())
	case errors.Is(err, votingerrors.ErrBallotNotFound),
		errors.Is(err, votingerrors.ErrResolutionNotFound):
		writeVotingError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, votingerrors.ErrVotingClosed):
		writeVotingError(w, http.StatusUnprocessableEntity, "voting_closed", err.Error())
	case errors.Is(err, votingerrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, votingerrors.ErrRosterUnavailable):
		writeVotingError(w, http.StatusServiceUnavailable, "roster_unavailable", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRevocationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, revocationerrors.ErrInvalidRevocationInput),
		errors.Is(err, revocationerrors.ErrSelfRevocation),
		errors.Is(err, revocationerrors.ErrMissingArticleReferences):
		writeRevocationError(w, http.StatusBadRequest, "invalid_revocation", err.Error())
	case errors.Is(err, revocationerrors.ErrResolutionNotFound),
		errors.Is(err, revocationerrors.ErrRevocationNotFound):
		writeRevocationError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, revocationerrors.ErrAlreadyTotallyRevoked),
		errors.Is(err, revocationerrors.ErrConflict):
		writeRevocationError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, revocationerrors.ErrRevokerNotEligible),
		errors.Is(err, revocationerrors.ErrOriginalNotPublished):
		writeRevocationError(w, http.StatusUnprocessableEntity, "revocation_rejected", err.Error())
	case errors.Is(err, revocationerrors.ErrContentUnavailable):
		writeRevocationError(w, http.StatusServiceUnavailable, "content_unavailable", err.Error())
	// A total revocation runs the document lifecycle transition in-line, so
	// its gate failures surface through this writer too.
	case errors.Is(err, documenterrors.ErrNotPublished):
		writeRevocationError(w, http.StatusUnprocessableEntity, "original_not_published", err.Error())
	case errors.Is(err, documenterrors.ErrAlreadyRevoked):
		writeRevocationError(w, http.StatusConflict, "already_revoked", err.Error())
	case errors.Is(err, documenterrors.ErrDocumentNotFound):
		writeRevocationError(w, http.StatusNotFound, "original_not_found", err.Error())
	case errors.Is(err, documenterrors.ErrAuditUnavailable):
		writeRevocationError(w, http.StatusServiceUnavailable, "audit_unavailable", err.Error())
	default:
		writeRevocationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRecordsError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, documenthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeRevocationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, revocationhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actorID == "" {
		writeRecordsError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return actorID, true
}
