package variants

import (
	"fmt"
	"time"

	"github.com/onflow/relay-node/insecure/interceptor"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// MalusReason is the reason given by verdicts forged by always-report-invalid.
const MalusReason = "malus"

// recordedResponsesSize bounds the number of requests delayed-response tracks.
const recordedResponsesSize = 4096

func suggestGarbageCandidate(Params) []interceptor.Binding {
	return []interceptor.Binding{{
		Kind:      relay.CandidateValidation,
		Selectors: []interceptor.Selector{{Direction: interceptor.Egress, Type: messages.TypeValidationOutcome}},
		NewHook: func() interceptor.Hook {
			garbage := newGarbageCandidates()
			return interceptor.HookFunc(func(_ interceptor.Direction, msg messages.Message) (interceptor.Action, error) {
				outcome, ok := msg.Payload().(messages.ValidationOutcome)
				if !ok {
					return interceptor.Action{}, unexpectedPayload(msg)
				}
				if !outcome.Valid {
					return interceptor.Forward(), nil
				}
				g := garbage.fabricate(outcome.Candidate)
				outcome.Candidate = g.receipt
				outcome.Commitments = g.commitments
				return interceptor.Replace(msg.WithPayload(outcome)), nil
			})
		},
	}}
}

func backGarbageCandidate(Params) []interceptor.Binding {
	return []interceptor.Binding{{
		Kind: relay.CandidateBacking,
		Selectors: []interceptor.Selector{
			{Direction: interceptor.Ingress, Type: messages.TypeSecondCandidate},
			{Direction: interceptor.Ingress, Type: messages.TypeValidationOutcome},
		},
		NewHook: func() interceptor.Hook {
			garbage := newGarbageCandidates()
			return interceptor.HookFunc(func(_ interceptor.Direction, msg messages.Message) (interceptor.Action, error) {
				switch payload := msg.Payload().(type) {
				case messages.SecondCandidate:
					g := garbage.fabricate(payload.Candidate)
					payload.Candidate = g.receipt
					payload.PoV = g.pov
					return interceptor.Replace(msg.WithPayload(payload)), nil
				case messages.ValidationOutcome:
					g, ok := garbage.lookup(payload.Candidate.Hash())
					if !ok {
						return interceptor.Forward(), nil
					}
					payload.Valid = true
					payload.Reason = ""
					payload.Commitments = g.commitments
					return interceptor.Replace(msg.WithPayload(payload)), nil
				default:
					return interceptor.Forward(), nil
				}
			})
		},
	}}
}

func duplicateVote(params Params) []interceptor.Binding {
	shift := params.VoteShift
	return []interceptor.Binding{{
		Kind:      relay.DisputeCoordinator,
		Selectors: []interceptor.Selector{{Direction: interceptor.Egress, Type: messages.TypeDisputeVote}},
		NewHook: func() interceptor.Hook {
			return interceptor.HookFunc(func(_ interceptor.Direction, msg messages.Message) (interceptor.Action, error) {
				if _, ok := msg.Payload().(messages.DisputeVote); !ok {
					return interceptor.Action{}, unexpectedPayload(msg)
				}
				return interceptor.Duplicate(1, shift, func(i int, final messages.Message) messages.Message {
					vote, ok := final.Payload().(messages.DisputeVote)
					if !ok {
						// replaced by a later hook, nothing to shift
						return final
					}
					vote.Timestamp += uint64(time.Duration(i) * shift / time.Millisecond)
					return final.WithPayload(vote)
				}), nil
			})
		},
	}}
}

func delayedResponse(params Params) []interceptor.Binding {
	delay := params.Delay
	return []interceptor.Binding{{
		Kind: relay.PvfExecution,
		Selectors: []interceptor.Selector{
			{Direction: interceptor.Ingress, Type: messages.TypeExecutePvf},
			{Direction: interceptor.Egress, Type: messages.TypePvfExecutionResult},
		},
		NewHook: func() interceptor.Hook {
			// correlation IDs of the execution requests seen on ingress
			recorded := mustNewCache(recordedResponsesSize)
			return interceptor.HookFunc(func(direction interceptor.Direction, msg messages.Message) (interceptor.Action, error) {
				if direction == interceptor.Ingress {
					recorded.Add(msg.ID(), struct{}{})
					return interceptor.Forward(), nil
				}
				if !recorded.Remove(msg.ID()) {
					return interceptor.Forward(), nil
				}
				return interceptor.DelayThenForward(delay), nil
			})
		},
	}}
}

func alwaysReportInvalid(Params) []interceptor.Binding {
	return []interceptor.Binding{{
		Kind:      relay.CandidateValidation,
		Selectors: []interceptor.Selector{{Direction: interceptor.Egress, Type: messages.TypeValidationOutcome}},
		NewHook: func() interceptor.Hook {
			return interceptor.HookFunc(func(_ interceptor.Direction, msg messages.Message) (interceptor.Action, error) {
				outcome, ok := msg.Payload().(messages.ValidationOutcome)
				if !ok {
					return interceptor.Action{}, unexpectedPayload(msg)
				}
				outcome.Valid = false
				outcome.Reason = MalusReason
				outcome.Commitments = relay.CandidateCommitments{}
				return interceptor.Replace(msg.WithPayload(outcome)), nil
			})
		},
	}}
}

func unexpectedPayload(msg messages.Message) error {
	return fmt.Errorf("unexpected payload %T for message type %s", msg.Payload(), msg.Type())
}
