package pvf

import (
	"fmt"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// Execute runs the reference validation function of a candidate:
//   - the PoV must fit the max PoV size of the validation data
//   - the PoV must hash to the descriptor's PoV hash
//   - the commitments produced by the execution must match the receipt's commitments hash
//
// The result is deterministic in its inputs.
func Execute(candidate relay.CandidateReceipt, pov relay.PoV, data relay.PersistedValidationData) messages.PvfExecutionResult {
	result := messages.PvfExecutionResult{
		CandidateHash: candidate.Hash(),
	}

	if size := len(pov.BlockData); uint64(size) > uint64(data.MaxPoVSize) {
		result.Reason = fmt.Sprintf("PoV size %d exceeds max %d", size, data.MaxPoVSize)
		return result
	}
	if pov.Hash() != candidate.Descriptor.PoVHash {
		result.Reason = "PoV hash mismatch"
		return result
	}

	commitments := relay.ExpectedCommitments(pov, data)
	if commitments.Hash() != candidate.CommitmentsHash {
		result.Reason = "commitments hash mismatch"
		return result
	}

	result.Commitments = commitments
	result.Valid = true
	return result
}
