package messages

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/onflow/relay-node/model/relay"
)

// ContractVersion is the version of the subsystem message contract. Variants reinterpret
// messages of this contract; they never extend it.
const ContractVersion = 1

// Type tags the payload of a message.
type Type uint8

const (
	TypeUnknown Type = iota

	// candidate validation
	TypeValidateCandidate
	TypeValidationOutcome

	// validation function execution
	TypeExecutePvf
	TypePvfExecutionResult

	// backing
	TypeSecondCandidate
	TypeBackingStatement

	// disputes
	TypeParticipateInDispute
	TypeDisputeVote
)

var typeNames = map[Type]string{
	TypeValidateCandidate:    "validate-candidate",
	TypeValidationOutcome:    "validation-outcome",
	TypeExecutePvf:           "execute-pvf",
	TypePvfExecutionResult:   "pvf-execution-result",
	TypeSecondCandidate:      "second-candidate",
	TypeBackingStatement:     "backing-statement",
	TypeParticipateInDispute: "participate-in-dispute",
	TypeDisputeVote:          "dispute-vote",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown-%d", uint8(t))
}

// Types returns all message types of the contract.
func Types() []Type {
	return []Type{
		TypeValidateCandidate,
		TypeValidationOutcome,
		TypeExecutePvf,
		TypePvfExecutionResult,
		TypeSecondCandidate,
		TypeBackingStatement,
		TypeParticipateInDispute,
		TypeDisputeVote,
	}
}

// Payload is the typed content of a message. Payloads are values and must be treated
// as immutable once wrapped in a Message.
type Payload interface {
	Type() Type
	// Destination is the subsystem the overseer routes the payload to.
	Destination() relay.SubsystemKind
}

// Message is the envelope exchanged between subsystems over the overseer.
// A request and its response share the same correlation ID.
type Message struct {
	id      uuid.UUID
	origin  relay.SubsystemKind
	payload Payload
}

// New creates a message with a fresh correlation ID. It is used for messages entering
// the node from outside.
func New(payload Payload) Message {
	return Message{
		id:      uuid.New(),
		payload: payload,
	}
}

// Reply creates the response to the given request, carrying the request's correlation ID.
func Reply(request Message, payload Payload) Message {
	return Message{
		id:      request.id,
		payload: payload,
	}
}

// Derive creates a message caused by the given parent message. The correlation ID is
// derived deterministically from the parent's ID and the payload type, so identical
// inputs produce identical traces.
func Derive(parent Message, payload Payload) Message {
	return Message{
		id:      uuid.NewSHA1(parent.id, []byte(payload.Type().String())),
		payload: payload,
	}
}

// NewWithID creates a message with the given correlation ID.
func NewWithID(id uuid.UUID, payload Payload) Message {
	return Message{
		id:      id,
		payload: payload,
	}
}

func (m Message) ID() uuid.UUID {
	return m.id
}

// Origin is the subsystem that sent the message, stamped by the overseer.
func (m Message) Origin() relay.SubsystemKind {
	return m.origin
}

func (m Message) Payload() Payload {
	return m.payload
}

func (m Message) Type() Type {
	if m.payload == nil {
		return TypeUnknown
	}
	return m.payload.Type()
}

func (m Message) Destination() relay.SubsystemKind {
	if m.payload == nil {
		return relay.External
	}
	return m.payload.Destination()
}

// WithPayload returns a copy of the message carrying the given payload. Correlation ID
// and origin are kept.
func (m Message) WithPayload(payload Payload) Message {
	m.payload = payload
	return m
}

// WithOrigin returns a copy of the message stamped with the given origin.
func (m Message) WithOrigin(origin relay.SubsystemKind) Message {
	m.origin = origin
	return m
}

func (m Message) String() string {
	return fmt.Sprintf("%s[%s] %s->%s", m.Type(), m.id, m.origin, m.Destination())
}
