package unittest

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// DefaultMaxPoVSize is the max PoV size of validation data fixtures.
const DefaultMaxPoVSize = 1 << 16

func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func HashFixture() relay.Hash {
	var h relay.Hash
	copy(h[:], RandomBytes(relay.HashLen))
	return h
}

func ValidatorKeyFixture(index relay.ValidatorIndex) *relay.ValidatorKey {
	key, err := relay.NewValidatorKey(index, RandomBytes(32))
	if err != nil {
		panic(err)
	}
	return key
}

func ValidationDataFixture() relay.PersistedValidationData {
	return relay.PersistedValidationData{
		ParentHead:        RandomBytes(32),
		RelayParentNumber: binary.BigEndian.Uint32(RandomBytes(4)) % 1_000_000,
		MaxPoVSize:        DefaultMaxPoVSize,
	}
}

func PoVFixture() relay.PoV {
	return relay.PoV{BlockData: RandomBytes(128)}
}

// CommittedCandidateFixture returns a candidate that is valid under the reference
// validation function, together with its PoV and validation data.
func CommittedCandidateFixture() (relay.CommittedCandidateReceipt, relay.PoV, relay.PersistedValidationData) {
	pov := PoVFixture()
	data := ValidationDataFixture()
	receipt := relay.CommittedCandidateReceipt{
		Descriptor: relay.CandidateDescriptor{
			ParaID:                      relay.ParaID(binary.BigEndian.Uint32(RandomBytes(4)) % 4096),
			RelayParent:                 HashFixture(),
			Collator:                    RandomBytes(32),
			PersistedValidationDataHash: data.Hash(),
			PoVHash:                     pov.Hash(),
			ValidationCodeHash:          HashFixture(),
		},
		Commitments: relay.ExpectedCommitments(pov, data),
	}
	return receipt, pov, data
}

// CandidateFixture returns the plain receipt of a valid candidate, together with its PoV
// and validation data.
func CandidateFixture() (relay.CandidateReceipt, relay.PoV, relay.PersistedValidationData) {
	committed, pov, data := CommittedCandidateFixture()
	return committed.ToPlain(), pov, data
}

// InvalidCandidateFixture returns a candidate whose commitments do not match the
// output of the validation function.
func InvalidCandidateFixture() (relay.CandidateReceipt, relay.PoV, relay.PersistedValidationData) {
	committed, pov, data := CommittedCandidateFixture()
	committed.Commitments.HeadData = RandomBytes(32)
	return committed.ToPlain(), pov, data
}

func SecondCandidateFixture() messages.SecondCandidate {
	candidate, pov, data := CandidateFixture()
	return messages.SecondCandidate{
		Candidate:      candidate,
		PoV:            pov,
		ValidationData: data,
	}
}

func ParticipateInDisputeFixture(session relay.SessionIndex) messages.ParticipateInDispute {
	candidate, pov, data := CandidateFixture()
	return messages.ParticipateInDispute{
		Candidate:      candidate,
		PoV:            pov,
		ValidationData: data,
		Session:        session,
	}
}

// ValidationOutcomeFixture returns a verdict on a fresh candidate for the given requester.
func ValidationOutcomeFixture(requester relay.SubsystemKind, valid bool) messages.ValidationOutcome {
	committed, _, _ := CommittedCandidateFixture()
	outcome := messages.ValidationOutcome{
		Requester: requester,
		Candidate: committed.ToPlain(),
		Valid:     valid,
	}
	if valid {
		outcome.Commitments = committed.Commitments
	} else {
		outcome.Reason = "invalid head data"
	}
	return outcome
}

// DisputeVoteFixture returns a valid vote signed by a fresh validator key.
func DisputeVoteFixture() messages.DisputeVote {
	return SignedDisputeVoteFixture(ValidatorKeyFixture(0), HashFixture(), 1, true)
}

func SignedDisputeVoteFixture(key *relay.ValidatorKey, candidate relay.Hash, session relay.SessionIndex, valid bool) messages.DisputeVote {
	payload := messages.DisputeVoteSigningPayload(candidate, session, key.Index(), valid)
	return messages.DisputeVote{
		CandidateHash:  candidate,
		Session:        session,
		ValidatorIndex: key.Index(),
		Valid:          valid,
		Timestamp:      uint64(time.Now().UnixMilli()),
		Signature:      key.Sign(encoding.DisputeVoteTag, payload),
	}
}

// BackingStatementFixture returns a Seconded statement on a fresh candidate, signed by the given key.
func BackingStatementFixture(key *relay.ValidatorKey) messages.BackingStatement {
	committed, _, _ := CommittedCandidateFixture()
	payload := messages.StatementSigningPayload(messages.Seconded, committed.Hash(), key.Index())
	return messages.BackingStatement{
		Kind:           messages.Seconded,
		Candidate:      committed,
		ValidatorIndex: key.Index(),
		Signature:      key.Sign(encoding.BackingStatementTag, payload),
	}
}
