// Package variants is the closed registry of misbehavior variants a malus node can run.
// A variant binds behavior hooks to the subsystems it corrupts; every other subsystem of
// the node stays genuine.
package variants

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/onflow/relay-node/insecure/interceptor"
	"github.com/onflow/relay-node/model/relay"
)

const (
	SuggestGarbageCandidate = "suggest-garbage-candidate"
	BackGarbageCandidate    = "back-garbage-candidate"
	DuplicateVote           = "duplicate-vote"
	DelayedResponse         = "delayed-response"
	AlwaysReportInvalid     = "always-report-invalid"
)

const (
	DefaultDelay     = 5 * time.Second
	DefaultVoteShift = 100 * time.Millisecond
)

// ErrUnknownVariant is returned when looking up a name that is not in the registry.
var ErrUnknownVariant = errors.New("unknown variant")

// Params parameterize the variants. Each variant reads only the fields it needs.
type Params struct {
	// Delay is how long delayed-response holds back execution results.
	Delay time.Duration
	// VoteShift is the spacing, and the timestamp shift, of the duplicated dispute vote.
	VoteShift time.Duration
}

func DefaultParams() Params {
	return Params{
		Delay:     DefaultDelay,
		VoteShift: DefaultVoteShift,
	}
}

func (p Params) validate() error {
	if p.Delay < 0 {
		return fmt.Errorf("negative delay %s", p.Delay)
	}
	// vote timestamps are in milliseconds, a smaller shift would leave the copy unchanged
	if p.VoteShift < time.Millisecond {
		return fmt.Errorf("vote shift %s below the timestamp resolution of 1ms", p.VoteShift)
	}
	return nil
}

// Descriptor describes one variant: the hooks it binds and the subsystems they target.
// A Descriptor is immutable.
type Descriptor struct {
	name        string
	description string
	bindings    []interceptor.Binding
}

func (d Descriptor) Name() string {
	return d.name
}

func (d Descriptor) Description() string {
	return d.description
}

// Bindings returns the bindings of the variant in declared order.
func (d Descriptor) Bindings() []interceptor.Binding {
	bindings := make([]interceptor.Binding, len(d.bindings))
	copy(bindings, d.bindings)
	return bindings
}

// BindingsFor returns the bindings targeting the given subsystem kind, in declared order.
func (d Descriptor) BindingsFor(kind relay.SubsystemKind) []interceptor.Binding {
	var bindings []interceptor.Binding
	for _, b := range d.bindings {
		if b.Kind == kind {
			bindings = append(bindings, b)
		}
	}
	return bindings
}

// Targets returns the distinct subsystem kinds the variant corrupts, in declared order.
func (d Descriptor) Targets() []relay.SubsystemKind {
	var kinds []relay.SubsystemKind
	seen := make(map[relay.SubsystemKind]struct{})
	for _, b := range d.bindings {
		if _, ok := seen[b.Kind]; ok {
			continue
		}
		seen[b.Kind] = struct{}{}
		kinds = append(kinds, b.Kind)
	}
	return kinds
}

type variant struct {
	description string
	bindings    func(Params) []interceptor.Binding
}

var registry = map[string]variant{
	SuggestGarbageCandidate: {
		description: "candidate-validation vouches for a fabricated candidate instead of every valid one",
		bindings:    suggestGarbageCandidate,
	},
	BackGarbageCandidate: {
		description: "candidate-backing seconds a fabricated candidate instead of the one it was handed",
		bindings:    backGarbageCandidate,
	},
	DuplicateVote: {
		description: "dispute-coordinator casts every dispute vote twice",
		bindings:    duplicateVote,
	},
	DelayedResponse: {
		description: "pvf-execution holds back its results past the validation deadline",
		bindings:    delayedResponse,
	},
	AlwaysReportInvalid: {
		description: "candidate-validation reports every candidate as invalid",
		bindings:    alwaysReportInvalid,
	},
}

// Lookup returns the descriptor of the named variant built from params.
func Lookup(name string, params Params) (Descriptor, error) {
	v, ok := registry[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q (known variants: %v)", ErrUnknownVariant, name, Names())
	}
	if err := params.validate(); err != nil {
		return Descriptor{}, fmt.Errorf("invalid parameters for variant %s: %w", name, err)
	}
	return Descriptor{
		name:        name,
		description: v.description,
		bindings:    v.bindings(params),
	}, nil
}

// Names returns the names of all registered variants in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
