/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseString(t *testing.T) {
	testCases := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "Idle"},
		{PhaseAwaitingOffer, "AwaitingOffer"},
		{PhaseOfferReady, "OfferReady"},
		{PhaseAwaitingCredential, "AwaitingCredential"},
		{PhaseAwaitingAnswer, "AwaitingAnswer"},
		{PhaseAnswerApplied, "AnswerApplied"},
		{PhaseFailed, "Failed"},
		{Phase(42), "Phase(42)"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.phase.String())
	}
}

func TestPhaseTerminal(t *testing.T) {
	assert.True(t, PhaseAnswerApplied.Terminal())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseIdle.Terminal())
	assert.False(t, PhaseAwaitingOffer.Terminal())
	assert.False(t, PhaseAwaitingAnswer.Terminal())
}

func TestFailureError(t *testing.T) {
	cause := errors.New("connection refused")
	f := &Failure{Kind: TransportFailure, AttemptID: 3, Phase: PhaseAwaitingCredential, Err: cause}

	assert.Contains(t, f.Error(), "attempt 3")
	assert.Contains(t, f.Error(), "AwaitingCredential")
	assert.Contains(t, f.Error(), "TransportFailure")
	assert.ErrorIs(t, f, cause)
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "TransportFailure", TransportFailure.String())
	assert.Equal(t, "ProtocolFailure", ProtocolFailure.String())
	assert.Equal(t, "EngineFailure", EngineFailure.String())
	assert.Equal(t, "ChannelUnavailable", ChannelUnavailable.String())
}
