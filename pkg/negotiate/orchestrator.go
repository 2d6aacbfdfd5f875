/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package negotiate drives the offer/answer lifecycle against the signaling
// service: one negotiation attempt per trigger, tracked by an explicit phase
// machine and a monotonically increasing attempt id. Blocking HTTP work runs
// on worker goroutines; completions re-enter under a single mutex and are
// discarded when their attempt has been superseded.
package negotiate

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/abrekhov/voicepipe/pkg/engine"
	"github.com/abrekhov/voicepipe/pkg/session"
	"github.com/abrekhov/voicepipe/pkg/signaling"
	log "github.com/sirupsen/logrus"
)

// DefaultChannelLabel names the data channel created before the offer.
const DefaultChannelLabel = "data"

// Credentials trades the long-lived API key for an ephemeral session key.
type Credentials interface {
	CreateEphemeralKey(ctx context.Context) (string, error)
}

// Exchanger posts the offer and returns the raw answer body.
type Exchanger interface {
	ExchangeOffer(ctx context.Context, offerSDP, ephemeralKey string) (string, error)
}

// Options tune orchestrator behavior.
type Options struct {
	// ChannelLabel overrides DefaultChannelLabel.
	ChannelLabel string
	// Restart lets a new negotiation trigger supersede an in-flight attempt.
	// When false the trigger is logged and ignored.
	Restart bool
	// Spawn runs the credential/exchange work. Defaults to `go f()`; tests
	// inject a synchronous runner.
	Spawn func(func())
	// OnPhaseChange observes every transition, keyed by attempt id.
	OnPhaseChange func(attemptID uint64, phase Phase)
}

// Attempt is the unit of work per negotiation trigger. The orchestrator is
// its sole owner.
type Attempt struct {
	ID         uint64
	Phase      Phase
	Local      *engine.Description
	Remote     *engine.Description
	Credential string
	Failure    *Failure

	configSent bool
}

// Snapshot is a read-only copy of the active attempt's progress.
type Snapshot struct {
	ID      uint64
	Phase   Phase
	Failure *Failure
}

// Orchestrator sequences data-channel creation, offer generation, credential
// acquisition, the answer exchange, and remote-description application.
type Orchestrator struct {
	engine   engine.Engine
	creds    Credentials
	exchange Exchanger
	config   *session.Configurator
	opts     Options
	ctx      context.Context

	mu      sync.Mutex
	attempt *Attempt
	seq     uint64
}

// New wires an orchestrator. config may be nil when no data-channel session
// configuration should be sent.
func New(eng engine.Engine, creds Credentials, exchange Exchanger, config *session.Configurator, opts Options) *Orchestrator {
	if opts.ChannelLabel == "" {
		opts.ChannelLabel = DefaultChannelLabel
	}
	return &Orchestrator{
		engine:   eng,
		creds:    creds,
		exchange: exchange,
		config:   config,
		opts:     opts,
		ctx:      context.Background(),
	}
}

// Start sets the context used for signaling requests. Call before the first
// negotiation trigger.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx = ctx
}

// Snapshot returns the current attempt's id, phase and failure, or a zero
// snapshot in Idle when no attempt has run yet.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	return Snapshot{ID: o.attempt.ID, Phase: o.attempt.Phase, Failure: o.attempt.Failure}
}

// NegotiationNeeded is the engine's negotiation trigger. It starts a fresh
// attempt: data channel first (so it lands in the offer's media description),
// then the asynchronous offer request.
func (o *Orchestrator) NegotiationNeeded() {
	o.mu.Lock()
	if a := o.attempt; a != nil && !a.Phase.Terminal() {
		if !o.opts.Restart {
			log.WithFields(log.Fields{"attempt": a.ID, "phase": a.Phase.String()}).
				Warnln("negotiation already in progress, ignoring trigger")
			o.mu.Unlock()
			return
		}
		log.WithFields(log.Fields{"attempt": a.ID, "phase": a.Phase.String()}).
			Infoln("superseding in-flight negotiation attempt")
	}
	o.seq++
	a := &Attempt{ID: o.seq, Phase: PhaseAwaitingOffer}
	o.attempt = a
	id := a.ID
	o.mu.Unlock()
	o.notify(id, PhaseAwaitingOffer)

	ch, err := o.engine.CreateDataChannel(o.opts.ChannelLabel)
	if err != nil || ch == nil {
		if err == nil {
			err = errors.New("engine returned no channel")
		}
		// Non-fatal: audio negotiation can still succeed without the channel.
		f := &Failure{Kind: ChannelUnavailable, AttemptID: id, Phase: PhaseAwaitingOffer, Err: err}
		log.Warnf("%v; continuing audio-only, session.update cannot be sent", f)
	} else {
		ch.OnOpen(func() { o.channelOpen(id, ch) })
	}

	o.engine.CreateOffer(func(d engine.Description, err error) {
		o.offerReady(id, d, err)
	})
}

// offerReady consumes the engine's offer completion. Applying the local
// description is best-effort: the offer text already exists, so the exchange
// proceeds even when the engine rejects it.
func (o *Orchestrator) offerReady(id uint64, d engine.Description, err error) {
	o.mu.Lock()
	a := o.attempt
	if a == nil || a.ID != id || a.Phase != PhaseAwaitingOffer {
		o.mu.Unlock()
		log.Debugf("discarding stale offer completion for attempt %d", id)
		return
	}
	if err != nil {
		o.failLocked(a, EngineFailure, err)
		o.mu.Unlock()
		o.notify(id, PhaseFailed)
		return
	}
	local := d
	a.Local = &local
	a.Phase = PhaseOfferReady
	if serr := o.engine.SetLocalDescription(d); serr != nil {
		log.WithFields(log.Fields{"attempt": id}).Errorf("set local description: %v", serr)
	}
	a.Phase = PhaseAwaitingCredential
	o.mu.Unlock()
	o.notify(id, PhaseOfferReady)
	o.notify(id, PhaseAwaitingCredential)
	log.Debugf("local offer:\n%s", d.SDP)

	offerSDP := d.SDP
	o.spawn(func() {
		key, ferr := o.creds.CreateEphemeralKey(o.ctx)
		o.credentialReady(id, offerSDP, key, ferr)
	})
}

// credentialReady consumes the worker's credential result and, on success,
// starts the answer exchange. An empty credential aborts the attempt before
// the exchange is ever called.
func (o *Orchestrator) credentialReady(id uint64, offerSDP, key string, err error) {
	o.mu.Lock()
	a := o.attempt
	if a == nil || a.ID != id || a.Phase != PhaseAwaitingCredential {
		o.mu.Unlock()
		log.Debugf("discarding stale credential for attempt %d", id)
		return
	}
	if err != nil || key == "" {
		kind := ProtocolFailure
		if err != nil {
			kind = classify(err)
		} else {
			err = errors.New("empty ephemeral credential")
		}
		o.failLocked(a, kind, err)
		o.mu.Unlock()
		o.notify(id, PhaseFailed)
		return
	}
	a.Credential = key
	a.Phase = PhaseAwaitingAnswer
	o.mu.Unlock()
	o.notify(id, PhaseAwaitingAnswer)

	o.spawn(func() {
		answer, xerr := o.exchange.ExchangeOffer(o.ctx, offerSDP, key)
		o.answerReady(id, answer, xerr)
	})
}

// answerReady validates the answer body and applies it as the remote
// description. The engine is never touched for an empty or malformed body,
// and a superseded attempt's answer is never applied.
func (o *Orchestrator) answerReady(id uint64, body string, err error) {
	o.mu.Lock()
	a := o.attempt
	if a == nil || a.ID != id || a.Phase != PhaseAwaitingAnswer {
		o.mu.Unlock()
		log.Debugf("discarding stale answer for attempt %d", id)
		return
	}
	switch {
	case err != nil:
		o.failLocked(a, classify(err), err)
	case !looksLikeSDP(body):
		o.failLocked(a, ProtocolFailure, errors.New("empty or malformed answer body"))
	default:
		remote := engine.Description{Type: engine.DescriptionAnswer, SDP: body}
		if aerr := o.engine.SetRemoteDescription(remote); aerr != nil {
			o.failLocked(a, EngineFailure, aerr)
		} else {
			a.Remote = &remote
			a.Phase = PhaseAnswerApplied
		}
	}
	phase := a.Phase
	o.mu.Unlock()
	o.notify(id, phase)
	if phase == PhaseAnswerApplied {
		log.WithFields(log.Fields{"attempt": id}).Infoln("remote answer applied")
		log.Debugf("remote answer:\n%s", body)
	}
}

// channelOpen sends the session configuration exactly once per attempt.
// Opens from superseded attempts and repeated open events are ignored.
func (o *Orchestrator) channelOpen(id uint64, ch engine.DataChannel) {
	o.mu.Lock()
	a := o.attempt
	if a == nil || a.ID != id {
		o.mu.Unlock()
		log.Debugf("ignoring channel open for superseded attempt %d", id)
		return
	}
	if a.configSent {
		o.mu.Unlock()
		return
	}
	a.configSent = true
	o.mu.Unlock()

	log.Infof("data channel %q open", ch.Label())
	if o.config == nil {
		return
	}
	if err := o.config.Send(ch); err != nil {
		log.WithFields(log.Fields{"attempt": id}).Errorf("session configuration: %v", err)
	}
}

func (o *Orchestrator) failLocked(a *Attempt, kind FailureKind, err error) {
	a.Failure = &Failure{Kind: kind, AttemptID: a.ID, Phase: a.Phase, Err: err}
	a.Phase = PhaseFailed
	log.Errorln(a.Failure)
}

func (o *Orchestrator) notify(id uint64, phase Phase) {
	log.WithFields(log.Fields{"attempt": id, "phase": phase.String()}).Debugln("negotiation phase")
	if o.opts.OnPhaseChange != nil {
		o.opts.OnPhaseChange(id, phase)
	}
}

func (o *Orchestrator) spawn(f func()) {
	if o.opts.Spawn != nil {
		o.opts.Spawn(f)
		return
	}
	go f()
}

func classify(err error) FailureKind {
	if errors.Is(err, signaling.ErrProtocol) {
		return ProtocolFailure
	}
	return TransportFailure
}

func looksLikeSDP(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), "v=")
}
