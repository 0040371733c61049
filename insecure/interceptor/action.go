package interceptor

import (
	"fmt"
	"time"

	"github.com/onflow/relay-node/model/messages"
)

// ActionKind is the decision a hook takes on a message.
type ActionKind uint8

const (
	ActionForward ActionKind = iota + 1
	ActionReplace
	ActionDrop
	ActionDelay
	ActionDuplicate
)

func (k ActionKind) String() string {
	switch k {
	case ActionForward:
		return "forward"
	case ActionReplace:
		return "replace"
	case ActionDrop:
		return "drop"
	case ActionDelay:
		return "delay"
	case ActionDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("unknown-%d", uint8(k))
	}
}

// Variation derives copy i (1..n) of a duplicated message from the final message.
type Variation func(i int, msg messages.Message) messages.Message

// Action is the result of one hook invocation. The zero Action is invalid.
type Action struct {
	kind      ActionKind
	msg       messages.Message
	delay     time.Duration
	copies    int
	spacing   time.Duration
	variation Variation
}

// Forward passes the message on unchanged.
func Forward() Action {
	return Action{kind: ActionForward}
}

// Replace substitutes msg for the current message. Later hooks see msg.
func Replace(msg messages.Message) Action {
	return Action{kind: ActionReplace, msg: msg}
}

// Drop discards the message. No later hook observes it.
func Drop() Action {
	return Action{kind: ActionDrop}
}

// DelayThenForward holds the message for d before it is emitted. Delays of
// consecutive hooks add up.
func DelayThenForward(d time.Duration) Action {
	return Action{kind: ActionDelay, delay: d}
}

// Duplicate emits n extra copies of the final message. Copy i is variation(i, final)
// and is emitted i*spacing after the message itself. A nil variation emits identical copies.
func Duplicate(n int, spacing time.Duration, variation Variation) Action {
	return Action{kind: ActionDuplicate, copies: n, spacing: spacing, variation: variation}
}

func (a Action) Kind() ActionKind {
	return a.kind
}

// validate returns an error if the action can not be carried out.
func (a Action) validate() error {
	switch a.kind {
	case ActionForward, ActionDrop:
		return nil
	case ActionReplace:
		if a.msg.Payload() == nil {
			return fmt.Errorf("replacement message has no payload")
		}
		return nil
	case ActionDelay:
		if a.delay < 0 {
			return fmt.Errorf("negative delay %s", a.delay)
		}
		return nil
	case ActionDuplicate:
		if a.copies < 1 {
			return fmt.Errorf("duplicate needs at least one copy, got %d", a.copies)
		}
		if a.spacing < 0 {
			return fmt.Errorf("negative duplicate spacing %s", a.spacing)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %s", a.kind)
	}
}
