package messages

import (
	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/relay"
)

// ParticipateInDispute asks dispute-coordinator to validate a disputed candidate and cast a vote.
type ParticipateInDispute struct {
	Candidate      relay.CandidateReceipt
	PoV            relay.PoV
	ValidationData relay.PersistedValidationData
	Session        relay.SessionIndex
}

func (ParticipateInDispute) Type() Type                       { return TypeParticipateInDispute }
func (ParticipateInDispute) Destination() relay.SubsystemKind { return relay.DisputeCoordinator }

// DisputeVote is an explicit vote on the validity of a disputed candidate. The signature
// covers candidate, session, validator and validity; the timestamp is unsigned metadata.
type DisputeVote struct {
	CandidateHash  relay.Hash
	Session        relay.SessionIndex
	ValidatorIndex relay.ValidatorIndex
	Valid          bool
	// Timestamp is the unix time in milliseconds at which the vote was cast.
	Timestamp uint64
	Signature relay.Signature
}

func (DisputeVote) Type() Type                       { return TypeDisputeVote }
func (DisputeVote) Destination() relay.SubsystemKind { return relay.DisputeDistribution }

// DisputeVoteSigningPayload is the payload a validator signs for a dispute vote.
func DisputeVoteSigningPayload(candidateHash relay.Hash, session relay.SessionIndex, index relay.ValidatorIndex, valid bool) []byte {
	return encoding.DefaultEncoder.MustEncode(struct {
		CandidateHash  relay.Hash
		Session        relay.SessionIndex
		ValidatorIndex relay.ValidatorIndex
		Valid          bool
	}{candidateHash, session, index, valid})
}

// Verify checks the vote signature against the given validator key.
func (v DisputeVote) Verify(id relay.ValidatorID) bool {
	payload := DisputeVoteSigningPayload(v.CandidateHash, v.Session, v.ValidatorIndex, v.Valid)
	return relay.Verify(id, encoding.DisputeVoteTag, payload, v.Signature)
}

// SameContent reports whether two votes carry the same signed content, ignoring the timestamp.
func (v DisputeVote) SameContent(other DisputeVote) bool {
	return v.CandidateHash == other.CandidateHash &&
		v.Session == other.Session &&
		v.ValidatorIndex == other.ValidatorIndex &&
		v.Valid == other.Valid &&
		string(v.Signature) == string(other.Signature)
}
