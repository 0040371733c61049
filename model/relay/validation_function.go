package relay

// OutputHead is the head data produced by the reference validation function:
// blake2b(parent head ‖ block data).
func OutputHead(parent HeadData, pov PoV) HeadData {
	h := HashBytes(parent, pov.BlockData)
	return HeadData(h[:])
}

// ExpectedCommitments are the commitments produced by executing a candidate's PoV on top
// of the given validation data with the reference validation function.
func ExpectedCommitments(pov PoV, data PersistedValidationData) CandidateCommitments {
	return CandidateCommitments{
		HeadData:                  OutputHead(data.ParentHead, pov),
		ProcessedDownwardMessages: 0,
		HrmpWatermark:             data.RelayParentNumber,
	}
}
