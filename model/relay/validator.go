package relay

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// ValidatorIndex is the position of a validator in the session's validator set.
type ValidatorIndex uint32

// SessionIndex identifies a session, i.e. a period with a fixed validator set.
type SessionIndex uint32

// Signature is a validator signature over a domain-tagged payload.
type Signature []byte

// ValidatorID is the public key of a validator.
type ValidatorID []byte

// ValidatorKey is the signing key of the local validator.
type ValidatorKey struct {
	index   ValidatorIndex
	private ed25519.PrivateKey
}

// NewValidatorKey deterministically derives a validator key from a 32-byte seed.
func NewValidatorKey(index ValidatorIndex, seed []byte) (*ValidatorKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid validator seed length: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &ValidatorKey{
		index:   index,
		private: ed25519.NewKeyFromSeed(seed),
	}, nil
}

// GenerateValidatorKey creates a random validator key.
func GenerateValidatorKey(index ValidatorIndex) (*ValidatorKey, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("could not generate validator seed: %w", err)
	}
	return NewValidatorKey(index, seed)
}

func (k *ValidatorKey) Index() ValidatorIndex {
	return k.index
}

func (k *ValidatorKey) PublicKey() ValidatorID {
	return ValidatorID(k.private.Public().(ed25519.PublicKey))
}

// Sign signs the payload under the given domain tag.
func (k *ValidatorKey) Sign(tag string, payload []byte) Signature {
	return ed25519.Sign(k.private, taggedPayload(tag, payload))
}

// Verify checks a signature of the given validator over the payload under the domain tag.
func Verify(id ValidatorID, tag string, payload []byte, sig Signature) bool {
	if len(id) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(id), taggedPayload(tag, payload), sig)
}

func taggedPayload(tag string, payload []byte) []byte {
	out := make([]byte, 0, 4+len(tag)+len(payload))
	out = binary.BigEndian.AppendUint32(out, uint32(len(tag)))
	out = append(out, tag...)
	return append(out, payload...)
}

// ValidatorSet maps the validators of a session to their public keys.
type ValidatorSet map[ValidatorIndex]ValidatorID

// NewValidatorSet returns the set of the given validator keys.
func NewValidatorSet(keys ...*ValidatorKey) ValidatorSet {
	set := make(ValidatorSet, len(keys))
	for _, k := range keys {
		set[k.Index()] = k.PublicKey()
	}
	return set
}

// ByIndex returns the public key of the validator with the given index.
func (s ValidatorSet) ByIndex(index ValidatorIndex) (ValidatorID, bool) {
	id, ok := s[index]
	return id, ok
}
