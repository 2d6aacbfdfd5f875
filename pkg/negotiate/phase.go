/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiate

import "fmt"

// Phase is the orchestrator's position in the offer/answer lifecycle.
type Phase int

// Lifecycle phases. AnswerApplied and Failed are terminal for an attempt.
const (
	PhaseIdle Phase = iota
	PhaseAwaitingOffer
	PhaseOfferReady
	PhaseAwaitingCredential
	PhaseAwaitingAnswer
	PhaseAnswerApplied
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseAwaitingOffer:
		return "AwaitingOffer"
	case PhaseOfferReady:
		return "OfferReady"
	case PhaseAwaitingCredential:
		return "AwaitingCredential"
	case PhaseAwaitingAnswer:
		return "AwaitingAnswer"
	case PhaseAnswerApplied:
		return "AnswerApplied"
	case PhaseFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal reports whether the phase ends an attempt.
func (p Phase) Terminal() bool {
	return p == PhaseAnswerApplied || p == PhaseFailed
}

// FailureKind classifies why an attempt went wrong.
type FailureKind int

// Failure kinds. ChannelUnavailable is the only non-fatal one.
const (
	TransportFailure FailureKind = iota
	ProtocolFailure
	EngineFailure
	ChannelUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case TransportFailure:
		return "TransportFailure"
	case ProtocolFailure:
		return "ProtocolFailure"
	case EngineFailure:
		return "EngineFailure"
	case ChannelUnavailable:
		return "ChannelUnavailable"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure carries enough context (attempt id, phase at failure time) for a
// supervisor to decide whether to re-trigger negotiation.
type Failure struct {
	Kind      FailureKind
	AttemptID uint64
	Phase     Phase
	Err       error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("negotiation attempt %d failed in %s (%s): %v", f.AttemptID, f.Phase, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
