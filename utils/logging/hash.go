package logging

import (
	"github.com/onflow/relay-node/model/relay"
)

// Hash returns the bytes of a hash, for use with zerolog's Hex fields.
func Hash(h relay.Hash) []byte {
	return h[:]
}

func Hashes(hashes []relay.Hash) []string {
	ss := make([]string, 0, len(hashes))
	for _, h := range hashes {
		ss = append(ss, h.String())
	}
	return ss
}

// CandidateHash returns the bytes of the candidate hash of the given receipt.
func CandidateHash(receipt relay.CandidateReceipt) []byte {
	return Hash(receipt.Hash())
}
