package encoding

// List of domain separation tags for protocol signatures.
//
// Each protocol-level signature involves hashing an entity.
// To prevent domain malleability attacks, the signed payload is
// prefixed with a domain tag that specifies the type of the signed object.

func tag(domain string) string {
	return protocolPrefix + domain
}

// relay protocol version and prefix
const protocolPrefix = "RELAY-V1_"

var (
	// BackingStatementTag is used for Seconded and Valid backing statements.
	BackingStatementTag = tag("Backing-Statement")
	// DisputeVoteTag is used for explicit dispute votes.
	DisputeVoteTag = tag("Dispute-Vote")
	// GarbageCandidateTag keys the derivation of fabricated candidates.
	GarbageCandidateTag = tag("Garbage-Candidate")
)
