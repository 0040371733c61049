package relay

import (
	"fmt"
)

// SubsystemKind identifies one subsystem on the overseer bus. Messages are routed by kind.
type SubsystemKind uint8

const (
	// External is the origin of messages entering the node from networking or the runtime.
	External SubsystemKind = iota
	CandidateValidation
	PvfExecution
	CandidateBacking
	DisputeCoordinator
	StatementDistribution
	DisputeDistribution
)

var subsystemNames = map[SubsystemKind]string{
	External:              "external",
	CandidateValidation:   "candidate-validation",
	PvfExecution:          "pvf-execution",
	CandidateBacking:      "candidate-backing",
	DisputeCoordinator:    "dispute-coordinator",
	StatementDistribution: "statement-distribution",
	DisputeDistribution:   "dispute-distribution",
}

// SubsystemKinds lists all subsystems a node can host, in bootstrap order.
func SubsystemKinds() []SubsystemKind {
	return []SubsystemKind{
		PvfExecution,
		CandidateValidation,
		CandidateBacking,
		DisputeCoordinator,
		StatementDistribution,
		DisputeDistribution,
	}
}

func (k SubsystemKind) String() string {
	if name, ok := subsystemNames[k]; ok {
		return name
	}
	return fmt.Sprintf("subsystem-%d", uint8(k))
}

// ParseSubsystemKind returns the kind with the given name.
func ParseSubsystemKind(name string) (SubsystemKind, error) {
	for kind, n := range subsystemNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown subsystem: %q", name)
}
