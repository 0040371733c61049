package relay

// ParaID identifies a parachain.
type ParaID uint32

// HeadData is the opaque head of a parachain block.
type HeadData []byte

// PoV is the proof-of-validity a collator supplies with a candidate.
type PoV struct {
	BlockData []byte
}

func (p PoV) Hash() Hash {
	return HashBytes(p.BlockData)
}

// PersistedValidationData is the part of the validation inputs that is committed to by
// the candidate descriptor.
type PersistedValidationData struct {
	ParentHead        HeadData
	RelayParentNumber uint32
	MaxPoVSize        uint32
}

func (d PersistedValidationData) Hash() Hash {
	return MakeHash(d)
}

// CandidateDescriptor is the unique descriptor of a parachain candidate.
type CandidateDescriptor struct {
	ParaID                      ParaID
	RelayParent                 Hash
	Collator                    []byte
	PersistedValidationDataHash Hash
	PoVHash                     Hash
	ValidationCodeHash          Hash
}

// CandidateCommitments are the outputs of a candidate's execution.
type CandidateCommitments struct {
	HeadData                  HeadData
	ProcessedDownwardMessages uint32
	HrmpWatermark             uint32
}

func (c CandidateCommitments) Hash() Hash {
	return MakeHash(c)
}

// CandidateReceipt is a candidate descriptor together with a commitment to the
// candidate's outputs.
type CandidateReceipt struct {
	Descriptor      CandidateDescriptor
	CommitmentsHash Hash
}

// Hash returns the candidate hash, which identifies the candidate everywhere in the protocol.
func (r CandidateReceipt) Hash() Hash {
	return MakeHash(r)
}

// CommittedCandidateReceipt is a candidate receipt carrying the full commitments.
type CommittedCandidateReceipt struct {
	Descriptor  CandidateDescriptor
	Commitments CandidateCommitments
}

// ToPlain returns the plain receipt, committing to the commitments by hash.
func (r CommittedCandidateReceipt) ToPlain() CandidateReceipt {
	return CandidateReceipt{
		Descriptor:      r.Descriptor,
		CommitmentsHash: r.Commitments.Hash(),
	}
}

// Hash is the hash of the plain receipt, so committed and plain receipts of the same
// candidate share one identity.
func (r CommittedCandidateReceipt) Hash() Hash {
	return r.ToPlain().Hash()
}
