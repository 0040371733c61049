package variants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/utils/unittest"
)

func TestFabricateGarbage(t *testing.T) {
	genuine, pov, _ := unittest.CandidateFixture()
	garbage := newGarbageCandidates()

	g := garbage.fabricate(genuine)
	assert.NotEqual(t, genuine.Hash(), g.receipt.Hash())
	assert.NotEqual(t, pov.Hash(), g.receipt.Descriptor.PoVHash)
	assert.NotEqual(t, genuine.CommitmentsHash, g.receipt.CommitmentsHash)
	assert.Equal(t, g.pov.Hash(), g.receipt.Descriptor.PoVHash)
	assert.Equal(t, g.commitments.Hash(), g.receipt.CommitmentsHash)
	assert.Equal(t, genuine.Descriptor.ParaID, g.receipt.Descriptor.ParaID)

	// fabrication is deterministic and independent of the cache
	assert.Equal(t, g, garbage.fabricate(genuine))
	assert.Equal(t, g, fabricateGarbage(genuine))

	found, ok := garbage.lookup(g.receipt.Hash())
	require.True(t, ok)
	assert.Equal(t, g, found)

	_, ok = garbage.lookup(genuine.Hash())
	assert.False(t, ok)
}
