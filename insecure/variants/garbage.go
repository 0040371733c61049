package variants

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/relay"
)

// garbageCacheSize bounds the number of fabricated candidates a hook remembers.
const garbageCacheSize = 1024

// garbageCandidate is a fabricated candidate. Its PoV and commitments are consistent with
// its receipt, but it is not the candidate of any collator.
type garbageCandidate struct {
	receipt     relay.CandidateReceipt
	pov         relay.PoV
	commitments relay.CandidateCommitments
}

// garbageCandidates fabricates garbage candidates and remembers them, both by the hash of
// the genuine candidate they replace and by their own hash.
// Not safe for concurrent use; hooks are serialized by their interceptor.
type garbageCandidates struct {
	byGenuine *lru.Cache
	byGarbage *lru.Cache
}

func newGarbageCandidates() *garbageCandidates {
	return &garbageCandidates{
		byGenuine: mustNewCache(garbageCacheSize),
		byGarbage: mustNewCache(garbageCacheSize),
	}
}

// mustNewCache creates an LRU cache. lru.New only fails for non-positive sizes.
func mustNewCache(size int) *lru.Cache {
	cache, err := lru.New(size)
	if err != nil {
		panic(fmt.Sprintf("could not create cache of size %d: %v", size, err))
	}
	return cache
}

// fabricate returns the garbage candidate standing in for genuine. The same genuine
// candidate always yields the same garbage candidate.
func (g *garbageCandidates) fabricate(genuine relay.CandidateReceipt) garbageCandidate {
	genuineHash := genuine.Hash()
	if cached, ok := g.byGenuine.Get(genuineHash); ok {
		return cached.(garbageCandidate)
	}

	garbage := fabricateGarbage(genuine)
	g.byGenuine.Add(genuineHash, garbage)
	g.byGarbage.Add(garbage.receipt.Hash(), garbage)
	return garbage
}

// lookup returns the garbage candidate with the given hash, if it was fabricated by g.
func (g *garbageCandidates) lookup(candidateHash relay.Hash) (garbageCandidate, bool) {
	cached, ok := g.byGarbage.Get(candidateHash)
	if !ok {
		return garbageCandidate{}, false
	}
	return cached.(garbageCandidate), true
}

func fabricateGarbage(genuine relay.CandidateReceipt) garbageCandidate {
	genuineHash := genuine.Hash()
	seed := relay.KeyedHash([]byte(encoding.GarbageCandidateTag), genuineHash[:])
	head := relay.HashBytes(seed[:], genuineHash[:])

	pov := relay.PoV{BlockData: seed[:]}
	commitments := relay.CandidateCommitments{HeadData: relay.HeadData(head[:])}

	descriptor := genuine.Descriptor
	descriptor.PoVHash = pov.Hash()

	return garbageCandidate{
		receipt: relay.CandidateReceipt{
			Descriptor:      descriptor,
			CommitmentsHash: commitments.Hash(),
		},
		pov:         pov,
		commitments: commitments,
	}
}
