/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package engine

import (
	"fmt"

	webrtc "github.com/pion/webrtc/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultSTUNServer is used when no ICE servers are configured.
const DefaultSTUNServer = "stun:stun.l.google.com:19302"

// Config holds engine construction options.
type Config struct {
	STUNServers []string
}

// Pion implements Engine on top of a pion PeerConnection.
type Pion struct {
	pc *webrtc.PeerConnection
}

// NewPion creates a PeerConnection with max-bundle and the configured STUN
// servers and wraps it as an Engine.
func NewPion(cfg Config) (*Pion, error) {
	urls := cfg.STUNServers
	if len(urls) == 0 {
		urls = []string{DefaultSTUNServer}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:   []webrtc.ICEServer{{URLs: urls}},
		BundlePolicy: webrtc.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	return &Pion{pc: pc}, nil
}

// PeerConnection exposes the underlying handle for observers that need the
// raw pion events (ICE state, candidates).
func (e *Pion) PeerConnection() *webrtc.PeerConnection {
	return e.pc
}

// AddAudioTransceiver adds an audio m-line to the upcoming offer. On a fresh
// PeerConnection this is what fires the first negotiation-needed event.
func (e *Pion) AddAudioTransceiver() error {
	_, err := e.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio)
	if err != nil {
		return fmt.Errorf("add audio transceiver: %w", err)
	}
	return nil
}

// OnNegotiationNeeded registers the negotiation trigger callback.
func (e *Pion) OnNegotiationNeeded(f func()) {
	e.pc.OnNegotiationNeeded(f)
}

// CreateDataChannel creates an engine-owned channel and returns a reference.
func (e *Pion) CreateDataChannel(label string) (DataChannel, error) {
	dc, err := e.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return &pionChannel{dc: dc}, nil
}

// CreateOffer generates the local offer off the caller's goroutine and
// delivers it through done.
func (e *Pion) CreateOffer(done func(Description, error)) {
	go func() {
		offer, err := e.pc.CreateOffer(nil)
		if err != nil {
			done(Description{}, fmt.Errorf("create offer: %w", err))
			return
		}
		done(Description{Type: DescriptionOffer, SDP: offer.SDP}, nil)
	}()
}

// SetLocalDescription applies the local description on the PeerConnection.
func (e *Pion) SetLocalDescription(d Description) error {
	sd, err := toSessionDescription(d)
	if err != nil {
		return err
	}
	return e.pc.SetLocalDescription(sd)
}

// SetRemoteDescription applies the remote description on the PeerConnection.
func (e *Pion) SetRemoteDescription(d Description) error {
	sd, err := toSessionDescription(d)
	if err != nil {
		return err
	}
	return e.pc.SetRemoteDescription(sd)
}

// Close tears down the PeerConnection.
func (e *Pion) Close() error {
	return e.pc.Close()
}

func toSessionDescription(d Description) (webrtc.SessionDescription, error) {
	switch d.Type {
	case DescriptionOffer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: d.SDP}, nil
	case DescriptionAnswer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: d.SDP}, nil
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unknown description type %q", d.Type)
	}
}

type pionChannel struct {
	dc *webrtc.DataChannel
}

func (c *pionChannel) Label() string { return c.dc.Label() }

func (c *pionChannel) OnOpen(f func()) { c.dc.OnOpen(f) }

func (c *pionChannel) SendText(text string) error {
	log.Debugf("data channel send: %#v\n", text)
	return c.dc.SendText(text)
}
