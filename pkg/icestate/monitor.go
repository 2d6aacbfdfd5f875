/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package icestate observes ICE connectivity transitions and candidate
// discovery. Purely observational; it never drives the engine.
package icestate

import (
	"sync"

	webrtc "github.com/pion/webrtc/v3"
	log "github.com/sirupsen/logrus"
)

// Category is the human-readable connectivity state mirrored from the engine.
type Category string

// Connectivity categories.
const (
	New          Category = "New"
	Checking     Category = "Checking"
	Connected    Category = "Connected"
	Completed    Category = "Completed"
	Failed       Category = "Failed"
	Disconnected Category = "Disconnected"
	Closed       Category = "Closed"
	Unknown      Category = "Unknown"
)

// FromICEConnectionState maps the engine's state enumeration to a Category.
func FromICEConnectionState(s webrtc.ICEConnectionState) Category {
	switch s {
	case webrtc.ICEConnectionStateNew:
		return New
	case webrtc.ICEConnectionStateChecking:
		return Checking
	case webrtc.ICEConnectionStateConnected:
		return Connected
	case webrtc.ICEConnectionStateCompleted:
		return Completed
	case webrtc.ICEConnectionStateFailed:
		return Failed
	case webrtc.ICEConnectionStateDisconnected:
		return Disconnected
	case webrtc.ICEConnectionStateClosed:
		return Closed
	default:
		return Unknown
	}
}

// Monitor logs connectivity transitions and keeps the last-known category for
// supervisors. Recovery from Failed/Disconnected is deliberately left to a
// higher-level policy; the monitor only reports.
type Monitor struct {
	mu       sync.Mutex
	last     Category
	onChange func(Category)
}

// NewMonitor creates a monitor. onChange may be nil.
func NewMonitor(onChange func(Category)) *Monitor {
	return &Monitor{last: New, onChange: onChange}
}

// Subscribe wires the monitor to a PeerConnection's ICE events.
func (m *Monitor) Subscribe(pc *webrtc.PeerConnection) {
	pc.OnICEConnectionStateChange(m.StateChanged)
	pc.OnICECandidate(m.CandidateGathered)
}

// StateChanged records and logs a connectivity transition.
func (m *Monitor) StateChanged(s webrtc.ICEConnectionState) {
	cat := FromICEConnectionState(s)
	m.mu.Lock()
	m.last = cat
	cb := m.onChange
	m.mu.Unlock()

	log.Infof("[ICE] %s", cat)
	if cb != nil {
		cb(cat)
	}
}

// CandidateGathered logs a discovered candidate. A nil candidate marks the
// end of gathering.
func (m *Monitor) CandidateGathered(c *webrtc.ICECandidate) {
	if c == nil {
		log.Debugln("[ICE] candidate gathering complete")
		return
	}
	j := c.ToJSON()
	fields := log.Fields{"candidate": j.Candidate}
	if j.SDPMLineIndex != nil {
		fields["mline"] = *j.SDPMLineIndex
	}
	log.WithFields(fields).Infoln("[ICE] candidate gathered")
}

// Last returns the most recent category seen.
func (m *Monitor) Last() Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
