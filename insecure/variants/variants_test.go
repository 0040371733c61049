package variants_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/onflow/relay-node/engine/backing"
	"github.com/onflow/relay-node/engine/dispute"
	"github.com/onflow/relay-node/engine/pvf"
	"github.com/onflow/relay-node/insecure/interceptor"
	"github.com/onflow/relay-node/insecure/variants"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module/metrics"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/unittest"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		variants.AlwaysReportInvalid,
		variants.BackGarbageCandidate,
		variants.DelayedResponse,
		variants.DuplicateVote,
		variants.SuggestGarbageCandidate,
	}, variants.Names())
}

func TestLookup(t *testing.T) {
	targets := map[string][]relay.SubsystemKind{
		variants.SuggestGarbageCandidate: {relay.CandidateValidation},
		variants.BackGarbageCandidate:    {relay.CandidateBacking},
		variants.DuplicateVote:           {relay.DisputeCoordinator},
		variants.DelayedResponse:         {relay.PvfExecution},
		variants.AlwaysReportInvalid:     {relay.CandidateValidation},
	}
	for _, name := range variants.Names() {
		d, err := variants.Lookup(name, variants.DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
		assert.NotEmpty(t, d.Description())
		assert.Equal(t, targets[name], d.Targets())
		for _, b := range d.Bindings() {
			assert.NotEmpty(t, b.Selectors)
			assert.NotNil(t, b.NewHook())
		}
	}

	t.Run("unknown variant", func(t *testing.T) {
		_, err := variants.Lookup("equivocate", variants.DefaultParams())
		assert.ErrorIs(t, err, variants.ErrUnknownVariant)
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := variants.Lookup(variants.DelayedResponse, variants.Params{Delay: -time.Second})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, variants.ErrUnknownVariant)
	})

	// dispute vote timestamps have millisecond resolution
	t.Run("vote shift below timestamp resolution", func(t *testing.T) {
		for _, shift := range []time.Duration{0, 500 * time.Microsecond} {
			params := variants.DefaultParams()
			params.VoteShift = shift
			_, err := variants.Lookup(variants.DuplicateVote, params)
			assert.Error(t, err, "vote shift %s", shift)
		}
	})

	t.Run("bindings are copied", func(t *testing.T) {
		d, err := variants.Lookup(variants.DuplicateVote, variants.DefaultParams())
		require.NoError(t, err)
		d.Bindings()[0].Kind = relay.CandidateBacking
		assert.Equal(t, []relay.SubsystemKind{relay.DisputeCoordinator}, d.Targets())
	})
}

// intercept wraps inner with the bindings of the named variant and runs it on a test bus.
func intercept(t *testing.T, name string, params variants.Params, inner subsystem.Subsystem) (*unittest.SubsystemContext, context.CancelFunc, <-chan error) {
	d, err := variants.Lookup(name, params)
	require.NoError(t, err)
	wrapped, err := interceptor.New(unittest.Logger(), metrics.NewNoopCollector(), inner, d.BindingsFor(inner.Kind())...)
	require.NoError(t, err)

	sctx := unittest.NewSubsystemContext(inner.Kind(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wrapped.Run(ctx, sctx) }()
	return sctx, cancel, done
}

// relayer sends every message it receives back onto the bus, so that ingress traffic of
// the test becomes egress traffic of the intercepted subsystem.
func relayer(kind relay.SubsystemKind) subsystem.Subsystem {
	return subsystem.NewFunc(kind, func(ctx context.Context, sctx subsystem.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg := <-sctx.Inbound():
				if err := sctx.Send(ctx, msg); err != nil {
					return err
				}
			}
		}
	})
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	cancel()
	unittest.RequireReturnsBefore(t, func() {
		assert.NoError(t, <-done)
	}, time.Second, "intercepted subsystem did not stop")
}

func TestDuplicateVote(t *testing.T) {
	key := unittest.ValidatorKeyFixture(3)
	now := time.UnixMilli(1_700_000_000_000)
	engine, err := dispute.New(unittest.Logger(), key, 1, dispute.DefaultVoteCacheSize, dispute.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	params := variants.DefaultParams()
	params.VoteShift = 50 * time.Millisecond
	sctx, cancel, done := intercept(t, variants.DuplicateVote, params, engine)
	defer cancel()

	participate := unittest.ParticipateInDisputeFixture(1)
	sctx.Deliver(t, messages.New(participate))

	request := sctx.RequireSent(t, time.Second)
	validate, ok := request.Payload().(messages.ValidateCandidate)
	require.True(t, ok)
	sctx.Deliver(t, messages.Reply(request, messages.ValidationOutcome{
		Requester: relay.DisputeCoordinator,
		Candidate: validate.Candidate,
		Valid:     true,
	}))

	first := sctx.RequireSent(t, time.Second).Payload().(messages.DisputeVote)
	second := sctx.RequireSent(t, time.Second).Payload().(messages.DisputeVote)
	sctx.RequireNothingSent(t, 3*params.VoteShift)

	assert.True(t, first.SameContent(second))
	assert.True(t, second.Verify(key.PublicKey()))
	assert.Equal(t, uint64(now.UnixMilli()), first.Timestamp)
	assert.Equal(t, first.Timestamp+50, second.Timestamp)

	stop(t, cancel, done)
}

func drawOutcome(t *rapid.T, label string) messages.ValidationOutcome {
	var povHash, commitmentsHash relay.Hash
	copy(povHash[:], rapid.SliceOfN(rapid.Byte(), relay.HashLen, relay.HashLen).Draw(t, label+"-pov"))
	copy(commitmentsHash[:], rapid.SliceOfN(rapid.Byte(), relay.HashLen, relay.HashLen).Draw(t, label+"-commitments"))
	return messages.ValidationOutcome{
		Requester: relay.CandidateBacking,
		Candidate: relay.CandidateReceipt{
			Descriptor: relay.CandidateDescriptor{
				ParaID:  relay.ParaID(rapid.Uint32().Draw(t, label+"-para")),
				PoVHash: povHash,
			},
			CommitmentsHash: commitmentsHash,
		},
		Commitments: relay.CandidateCommitments{HeadData: rapid.SliceOf(rapid.Byte()).Draw(t, label+"-head")},
		Valid:       rapid.Bool().Draw(t, label+"-valid"),
	}
}

func TestSuggestGarbageCandidate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, err := variants.Lookup(variants.SuggestGarbageCandidate, variants.DefaultParams())
		if err != nil {
			rt.Fatalf("could not look up variant: %v", err)
		}
		inner := relayer(relay.CandidateValidation)
		wrapped, err := interceptor.New(unittest.Logger(), metrics.NewNoopCollector(), inner, d.Bindings()...)
		if err != nil {
			rt.Fatalf("could not wrap: %v", err)
		}
		sctx := unittest.NewSubsystemContext(relay.CandidateValidation, 1)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- wrapped.Run(ctx, sctx) }()
		defer func() {
			cancel()
			<-done
		}()

		n := rapid.IntRange(1, 12).Draw(rt, "n")
		for i := 0; i < n; i++ {
			genuine := drawOutcome(rt, "outcome")
			in := messages.New(genuine)
			if !sctx.TryDeliver(in, time.Second) {
				rt.Fatalf("could not deliver outcome %d", i)
			}

			var out messages.Message
			select {
			case out = <-sctx.Outbound():
			case <-time.After(time.Second):
				rt.Fatalf("no outcome relayed for %d", i)
			}
			if out.ID() != in.ID() {
				rt.Fatalf("relayed outcome has id %s, expected %s", out.ID(), in.ID())
			}

			suggested := out.Payload().(messages.ValidationOutcome)
			if !genuine.Valid {
				if string(messages.MustEncode(in.WithOrigin(relay.CandidateValidation))) != string(messages.MustEncode(out)) {
					rt.Fatalf("invalid verdict %d was modified", i)
				}
				continue
			}
			if !suggested.Valid {
				rt.Fatalf("garbage verdict %d is not valid", i)
			}
			if suggested.Candidate.Hash() == genuine.Candidate.Hash() {
				rt.Fatalf("verdict %d still vouches for the genuine candidate", i)
			}
			if suggested.Candidate.Descriptor.PoVHash == genuine.Candidate.Descriptor.PoVHash {
				rt.Fatalf("garbage candidate %d kept the genuine PoV hash", i)
			}
			if suggested.Commitments.Hash() != suggested.Candidate.CommitmentsHash {
				rt.Fatalf("garbage candidate %d does not commit to its commitments", i)
			}
		}
	})
}

func TestBackGarbageCandidate(t *testing.T) {
	key := unittest.ValidatorKeyFixture(1)
	sctx, cancel, done := intercept(t, variants.BackGarbageCandidate, variants.DefaultParams(), backing.New(unittest.Logger(), key))
	defer cancel()

	genuine := unittest.SecondCandidateFixture()
	sctx.Deliver(t, messages.New(genuine))

	request := sctx.RequireSent(t, time.Second)
	validate, ok := request.Payload().(messages.ValidateCandidate)
	require.True(t, ok)
	garbageHash := validate.Candidate.Hash()
	require.NotEqual(t, genuine.Candidate.Hash(), garbageHash)
	assert.Equal(t, validate.PoV.Hash(), validate.Candidate.Descriptor.PoVHash)

	// an honest validator rejects the garbage candidate
	sctx.Deliver(t, messages.Reply(request, messages.ValidationOutcome{
		Requester: relay.CandidateBacking,
		Candidate: validate.Candidate,
		Valid:     false,
		Reason:    "commitments hash mismatch",
	}))

	statement, ok := sctx.RequireSent(t, time.Second).Payload().(messages.BackingStatement)
	require.True(t, ok)
	assert.Equal(t, messages.Seconded, statement.Kind)
	assert.Equal(t, garbageHash, statement.Candidate.Hash())
	assert.Equal(t, key.Index(), statement.ValidatorIndex)
	assert.True(t, statement.Verify(key.PublicKey()))

	stop(t, cancel, done)
}

func TestBackGarbageCandidate_ForwardsUnrelatedOutcomes(t *testing.T) {
	sctx, cancel, done := intercept(t, variants.BackGarbageCandidate, variants.DefaultParams(), backing.New(unittest.Logger(), unittest.ValidatorKeyFixture(1)))
	defer cancel()

	// an outcome for a candidate the hook never fabricated is not turned valid, so
	// backing has nothing to second
	sctx.Deliver(t, messages.New(unittest.ValidationOutcomeFixture(relay.CandidateBacking, false)))
	sctx.RequireNothingSent(t, 100*time.Millisecond)

	stop(t, cancel, done)
}

func TestDelayedResponse(t *testing.T) {
	engine, err := pvf.New(unittest.Logger(), metrics.NewNoopCollector(), 1)
	require.NoError(t, err)

	params := variants.DefaultParams()
	params.Delay = 300 * time.Millisecond
	sctx, cancel, done := intercept(t, variants.DelayedResponse, params, engine)
	defer cancel()

	candidate, pov, data := unittest.CandidateFixture()
	request := messages.New(messages.ExecutePvf{Candidate: candidate, PoV: pov, ValidationData: data})
	sent := time.Now()
	sctx.Deliver(t, request)

	sctx.RequireNothingSent(t, 100*time.Millisecond)
	response := sctx.RequireSent(t, time.Second)
	assert.GreaterOrEqual(t, time.Since(sent), params.Delay)
	assert.Equal(t, request.ID(), response.ID())

	result, ok := response.Payload().(messages.PvfExecutionResult)
	require.True(t, ok)
	assert.True(t, result.Valid)

	stop(t, cancel, done)
}

// TestDelayedResponse_Shutdown verifies that a pending delayed response does not hold up
// shutdown of the intercepted subsystem.
func TestDelayedResponse_Shutdown(t *testing.T) {
	engine, err := pvf.New(unittest.Logger(), metrics.NewNoopCollector(), 1)
	require.NoError(t, err)

	sctx, cancel, done := intercept(t, variants.DelayedResponse, variants.DefaultParams(), engine)
	defer cancel()

	candidate, pov, data := unittest.CandidateFixture()
	sctx.Deliver(t, messages.New(messages.ExecutePvf{Candidate: candidate, PoV: pov, ValidationData: data}))
	sctx.RequireNothingSent(t, 100*time.Millisecond)

	stop(t, cancel, done)
}

func TestAlwaysReportInvalid(t *testing.T) {
	sctx, cancel, done := intercept(t, variants.AlwaysReportInvalid, variants.DefaultParams(), relayer(relay.CandidateValidation))
	defer cancel()

	genuine := unittest.ValidationOutcomeFixture(relay.DisputeCoordinator, true)
	sctx.Deliver(t, messages.New(genuine))

	outcome := sctx.RequireSent(t, time.Second).Payload().(messages.ValidationOutcome)
	assert.False(t, outcome.Valid)
	assert.Equal(t, variants.MalusReason, outcome.Reason)
	assert.Equal(t, genuine.Candidate, outcome.Candidate)
	assert.Equal(t, relay.DisputeCoordinator, outcome.Requester)

	stop(t, cancel, done)
}

// A payload of an unexpected Go type must fail the intercepted subsystem with a hook error
// instead of crashing the node.
func TestUnexpectedPayloadIsHookError(t *testing.T) {
	cases := []struct {
		variant string
		kind    relay.SubsystemKind
		payload messages.Payload
	}{
		{variants.SuggestGarbageCandidate, relay.CandidateValidation, &messages.ValidationOutcome{Requester: relay.CandidateBacking, Valid: true}},
		{variants.AlwaysReportInvalid, relay.CandidateValidation, &messages.ValidationOutcome{Requester: relay.CandidateBacking}},
		{variants.DuplicateVote, relay.DisputeCoordinator, &messages.DisputeVote{Session: 1}},
	}
	for _, c := range cases {
		t.Run(c.variant, func(t *testing.T) {
			sctx, cancel, done := intercept(t, c.variant, variants.DefaultParams(), relayer(c.kind))
			defer cancel()

			sctx.Deliver(t, messages.New(c.payload))
			unittest.RequireReturnsBefore(t, func() {
				err := <-done
				require.Error(t, err)
				assert.True(t, interceptor.IsHookError(err), "unexpected error: %v", err)
			}, time.Second, "intercepted subsystem did not fail")
			sctx.RequireNothingSent(t, 50*time.Millisecond)
		})
	}
}
