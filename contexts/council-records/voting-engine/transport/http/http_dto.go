package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CastBallotRequest struct {
	Choice           string `json:"choice"`
	Impeded          bool   `json:"impeded"`
	ImpedimentReason string `json:"impediment_reason,omitempty"`
}

type BallotResponse struct {
	BallotID         string `json:"ballot_id"`
	ResolutionID     string `json:"resolution_id"`
	VoterID          string `json:"voter_id"`
	Choice           string `json:"choice"`
	Impeded          bool   `json:"impeded"`
	ImpedimentReason string `json:"impediment_reason,omitempty"`
	Replaced         bool   `json:"replaced"`
}

type VoteResultResponse struct {
	ResolutionID  string `json:"resolution_id"`
	FavorCount    int    `json:"favor_count"`
	AgainstCount  int    `json:"against_count"`
	AbstainCount  int    `json:"abstain_count"`
	ImpededCount  int    `json:"impeded_count"`
	EligibleCount int    `json:"eligible_count"`
	QuorumMet     bool   `json:"quorum_met"`
	Outcome       string `json:"outcome"`
}
