package relay

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/onflow/relay-node/model/encoding"
)

// HashLen is the size of a relay-chain hash in bytes.
const HashLen = 32

// Hash is a blake2b-256 digest, used to identify candidates, PoVs and validation data.
type Hash [HashLen]byte

// ZeroHash is the empty hash.
var ZeroHash = Hash{}

// HashBytes hashes the concatenation of the given byte slices.
func HashBytes(data ...[]byte) Hash {
	h, _ := blake2b.New256(nil) // only errors on keys longer than 64 bytes
	for _, d := range data {
		_, _ = h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// KeyedHash hashes the concatenation of the given byte slices under the given key.
// Keys longer than 64 bytes are hashed down first.
func KeyedHash(key []byte, data ...[]byte) Hash {
	if len(key) > blake2b.Size {
		digest := HashBytes(key)
		key = digest[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		panic(fmt.Errorf("could not create keyed hasher: %w", err))
	}
	for _, d := range data {
		_, _ = h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// MakeHash hashes the canonical encoding of the given entity.
func MakeHash(entity interface{}) Hash {
	return HashBytes(encoding.DefaultEncoder.MustEncode(entity))
}

// HexStringToHash parses a hex-encoded hash.
func HexStringToHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("could not decode hash: %w", err)
	}
	if len(b) != HashLen {
		return h, fmt.Errorf("invalid hash length: expected %d bytes, got %d", HashLen, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}
