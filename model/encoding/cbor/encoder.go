package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// EncMode is the canonical CBOR encoding mode. Map keys are sorted and integers use
// their shortest form, so the encoding of a value is unique.
var EncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("could not create canonical cbor encoding mode: %w", err))
	}
	return mode
}()

// DecMode rejects duplicate map keys so that every accepted encoding is canonical.
var DecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Errorf("could not create cbor decoding mode: %w", err))
	}
	return mode
}()

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(val interface{}) ([]byte, error) {
	return EncMode.Marshal(val)
}

func (e *Encoder) Decode(b []byte, val interface{}) error {
	return DecMode.Unmarshal(b, val)
}

func (e *Encoder) MustEncode(val interface{}) []byte {
	b, err := e.Encode(val)
	if err != nil {
		panic(err)
	}
	return b
}

func (e *Encoder) MustDecode(b []byte, val interface{}) {
	err := e.Decode(b, val)
	if err != nil {
		panic(err)
	}
}
