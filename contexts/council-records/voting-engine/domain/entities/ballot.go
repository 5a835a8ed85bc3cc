package entities

import (
	"strings"
	"time"
)

type BallotChoice string

const (
	BallotChoiceFavor   BallotChoice = "favor"
	BallotChoiceAgainst BallotChoice = "against"
	BallotChoiceAbstain BallotChoice = "abstain"
)

func (c BallotChoice) Valid() bool {
	switch c {
	case BallotChoiceFavor, BallotChoiceAgainst, BallotChoiceAbstain:
		return true
	default:
		return false
	}
}

// Ballot is one council member's vote on a resolution. An impeded ballot
// records a declared conflict of interest; it is kept for audit but never
// counted in a tally.
type Ballot struct {
	BallotID         string
	ResolutionID     string
	VoterID          string
	Choice           BallotChoice
	Impeded          bool
	ImpedimentReason string
	CastAt           time.Time
	UpdatedAt        time.Time
}

func (b Ballot) Countable() bool {
	return !b.Impeded && b.Choice.Valid()
}

type VoteOutcome string

const (
	VoteOutcomeApproved VoteOutcome = "approved"
	VoteOutcomeRejected VoteOutcome = "rejected"
	VoteOutcomeNoQuorum VoteOutcome = "no_quorum"
)

// VoteResult is derived from ballots plus the eligible-voter roster.
// It is recomputed on demand and never stored.
type VoteResult struct {
	ResolutionID  string
	FavorCount    int
	AgainstCount  int
	AbstainCount  int
	ImpededCount  int
	EligibleCount int
	QuorumMet     bool
	Outcome       VoteOutcome
}

// QuorumPolicy is the injectable majority threshold. Council bylaws vary, so
// deployments tune ExtraVotes instead of editing the tally code.
type QuorumPolicy struct {
	ExtraVotes int
}

// Threshold returns the minimum count of non-impeded ballots required for a
// valid vote: ceil(eligible/2)+1 plus any bylaw extra. The regimental texts
// read this as an absolute majority; for odd chambers the two diverge by one
// and the stricter reading applies until the bylaws say otherwise.
func (p QuorumPolicy) Threshold(eligibleCount int) int {
	if eligibleCount <= 0 {
		return 1
	}
	return (eligibleCount+1)/2 + 1 + p.ExtraVotes
}

// Tally computes the outcome of a voting round. Only roster members count;
// impeded roster members shrink the eligible base. Abstentions count toward
// quorum but are excluded from the favor/against comparison, and a tie is a
// rejection. The function is pure: identical inputs yield identical results.
func Tally(resolutionID string, ballots []Ballot, roster []string, policy QuorumPolicy) VoteResult {
	members := make(map[string]bool, len(roster))
	for _, voterID := range roster {
		voterID = strings.TrimSpace(voterID)
		if voterID != "" {
			members[voterID] = true
		}
	}

	result := VoteResult{ResolutionID: resolutionID}
	for _, ballot := range ballots {
		if !members[strings.TrimSpace(ballot.VoterID)] {
			continue
		}
		if ballot.Impeded {
			result.ImpededCount++
			continue
		}
		switch ballot.Choice {
		case BallotChoiceFavor:
			result.FavorCount++
		case BallotChoiceAgainst:
			result.AgainstCount++
		case BallotChoiceAbstain:
			result.AbstainCount++
		}
	}

	result.EligibleCount = len(members) - result.ImpededCount
	cast := result.FavorCount + result.AgainstCount + result.AbstainCount
	result.QuorumMet = cast >= policy.Threshold(result.EligibleCount)

	switch {
	case !result.QuorumMet:
		result.Outcome = VoteOutcomeNoQuorum
	case result.FavorCount > result.AgainstCount:
		result.Outcome = VoteOutcomeApproved
	default:
		result.Outcome = VoteOutcomeRejected
	}
	return result
}
