package messages

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/relay"
)

// envelope is the wire representation of a Message.
type envelope struct {
	Version uint8
	Type    Type
	ID      uuid.UUID
	Origin  relay.SubsystemKind
	Payload cbor.RawMessage
}

// Encode returns the canonical encoding of the message. Two messages are identical
// exactly when their encodings are equal.
func Encode(msg Message) ([]byte, error) {
	if msg.payload == nil {
		return nil, fmt.Errorf("cannot encode message %s without payload", msg.id)
	}
	payload, err := encoding.DefaultEncoder.Encode(msg.payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s payload: %w", msg.Type(), err)
	}
	b, err := encoding.DefaultEncoder.Encode(envelope{
		Version: ContractVersion,
		Type:    msg.Type(),
		ID:      msg.id,
		Origin:  msg.origin,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode %s envelope: %w", msg.Type(), err)
	}
	return b, nil
}

// MustEncode is Encode for messages known to be well-formed.
func MustEncode(msg Message) []byte {
	b, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode decodes a message produced by Encode.
func Decode(b []byte) (Message, error) {
	var env envelope
	if err := encoding.DefaultEncoder.Decode(b, &env); err != nil {
		return Message{}, fmt.Errorf("could not decode message envelope: %w", err)
	}
	if env.Version != ContractVersion {
		return Message{}, fmt.Errorf("unsupported message contract version %d", env.Version)
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		id:      env.ID,
		origin:  env.Origin,
		payload: payload,
	}, nil
}

func decodePayload(t Type, b []byte) (Payload, error) {
	var err error
	switch t {
	case TypeValidateCandidate:
		var p ValidateCandidate
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeValidationOutcome:
		var p ValidationOutcome
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeExecutePvf:
		var p ExecutePvf
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypePvfExecutionResult:
		var p PvfExecutionResult
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeSecondCandidate:
		var p SecondCandidate
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeBackingStatement:
		var p BackingStatement
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeParticipateInDispute:
		var p ParticipateInDispute
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	case TypeDisputeVote:
		var p DisputeVote
		err = encoding.DefaultEncoder.Decode(b, &p)
		return p, wrapDecodeErr(t, err)
	default:
		return nil, fmt.Errorf("invalid message type (%d)", uint8(t))
	}
}

func wrapDecodeErr(t Type, err error) error {
	if err != nil {
		return fmt.Errorf("could not decode %s payload: %w", t, err)
	}
	return nil
}
