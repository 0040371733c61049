package messages

import (
	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/relay"
)

// SecondCandidate asks candidate-backing to second a candidate received from a collator.
type SecondCandidate struct {
	Candidate      relay.CandidateReceipt
	PoV            relay.PoV
	ValidationData relay.PersistedValidationData
}

func (SecondCandidate) Type() Type                       { return TypeSecondCandidate }
func (SecondCandidate) Destination() relay.SubsystemKind { return relay.CandidateBacking }

// StatementKind distinguishes the two kinds of backing statements.
type StatementKind uint8

const (
	// Seconded proposes a candidate for inclusion and attests to its validity.
	Seconded StatementKind = iota + 1
	// Valid attests to the validity of a candidate seconded by another validator.
	Valid
)

func (k StatementKind) String() string {
	switch k {
	case Seconded:
		return "seconded"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// BackingStatement is a signed backing statement about a candidate.
type BackingStatement struct {
	Kind           StatementKind
	Candidate      relay.CommittedCandidateReceipt
	ValidatorIndex relay.ValidatorIndex
	Signature      relay.Signature
}

func (BackingStatement) Type() Type                       { return TypeBackingStatement }
func (BackingStatement) Destination() relay.SubsystemKind { return relay.StatementDistribution }

// StatementSigningPayload is the payload a validator signs for a backing statement.
func StatementSigningPayload(kind StatementKind, candidateHash relay.Hash, index relay.ValidatorIndex) []byte {
	return encoding.DefaultEncoder.MustEncode(struct {
		Kind           StatementKind
		CandidateHash  relay.Hash
		ValidatorIndex relay.ValidatorIndex
	}{kind, candidateHash, index})
}

// Verify checks the statement signature against the given validator key.
func (s BackingStatement) Verify(id relay.ValidatorID) bool {
	payload := StatementSigningPayload(s.Kind, s.Candidate.Hash(), s.ValidatorIndex)
	return relay.Verify(id, encoding.BackingStatementTag, payload, s.Signature)
}
