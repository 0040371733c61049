package bridge

import (
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/utils/logging"
)

// Gossiper hands outbound items to the network. The network itself is outside the node.
type Gossiper interface {
	Gossip(channel relay.SubsystemKind, msg messages.Message)
}

// LogGossiper logs what would be gossiped.
type LogGossiper struct {
	log zerolog.Logger
}

var _ Gossiper = (*LogGossiper)(nil)

func NewLogGossiper(log zerolog.Logger) *LogGossiper {
	return &LogGossiper{log: log.With().Str("component", "gossiper").Logger()}
}

func (g *LogGossiper) Gossip(channel relay.SubsystemKind, msg messages.Message) {
	event := g.log.Info().
		Str("channel", channel.String()).
		Str("message", msg.Type().String()).
		Str("correlation_id", msg.ID().String())

	switch p := msg.Payload().(type) {
	case messages.BackingStatement:
		event = event.
			Hex("candidate", logging.Hash(p.Candidate.Hash())).
			Str("kind", p.Kind.String()).
			Uint32("validator_index", uint32(p.ValidatorIndex))
	case messages.DisputeVote:
		event = event.
			Hex("candidate", logging.Hash(p.CandidateHash)).
			Uint32("session", uint32(p.Session)).
			Uint32("validator_index", uint32(p.ValidatorIndex)).
			Bool("valid", p.Valid).
			Uint64("timestamp", p.Timestamp)
	}
	event.Msg("gossiping")
}
