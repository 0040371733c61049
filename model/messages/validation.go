package messages

import (
	"github.com/onflow/relay-node/model/relay"
)

// ValidateCandidate asks candidate-validation to validate a candidate with its PoV.
// The outcome is sent back to Requester under the same correlation ID.
type ValidateCandidate struct {
	Requester      relay.SubsystemKind
	Candidate      relay.CandidateReceipt
	PoV            relay.PoV
	ValidationData relay.PersistedValidationData
}

func (ValidateCandidate) Type() Type                       { return TypeValidateCandidate }
func (ValidateCandidate) Destination() relay.SubsystemKind { return relay.CandidateValidation }

// ValidationOutcome is the verdict of candidate-validation. For a valid candidate it
// carries the commitments produced by executing the candidate.
type ValidationOutcome struct {
	Requester   relay.SubsystemKind
	Candidate   relay.CandidateReceipt
	Commitments relay.CandidateCommitments
	Valid       bool
	Reason      string
}

func (ValidationOutcome) Type() Type                         { return TypeValidationOutcome }
func (o ValidationOutcome) Destination() relay.SubsystemKind { return o.Requester }

// ExecutePvf asks pvf-execution to run the validation function of the candidate's parachain.
type ExecutePvf struct {
	Candidate      relay.CandidateReceipt
	PoV            relay.PoV
	ValidationData relay.PersistedValidationData
}

func (ExecutePvf) Type() Type                       { return TypeExecutePvf }
func (ExecutePvf) Destination() relay.SubsystemKind { return relay.PvfExecution }

// PvfExecutionResult is the result of running a validation function.
type PvfExecutionResult struct {
	CandidateHash relay.Hash
	Commitments   relay.CandidateCommitments
	Valid         bool
	Reason        string
}

func (PvfExecutionResult) Type() Type                       { return TypePvfExecutionResult }
func (PvfExecutionResult) Destination() relay.SubsystemKind { return relay.CandidateValidation }
