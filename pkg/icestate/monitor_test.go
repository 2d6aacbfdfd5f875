/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package icestate

import (
	"testing"

	webrtc "github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
)

func TestFromICEConnectionState(t *testing.T) {
	testCases := []struct {
		state webrtc.ICEConnectionState
		want  Category
	}{
		{webrtc.ICEConnectionStateNew, New},
		{webrtc.ICEConnectionStateChecking, Checking},
		{webrtc.ICEConnectionStateConnected, Connected},
		{webrtc.ICEConnectionStateCompleted, Completed},
		{webrtc.ICEConnectionStateFailed, Failed},
		{webrtc.ICEConnectionStateDisconnected, Disconnected},
		{webrtc.ICEConnectionStateClosed, Closed},
		{webrtc.ICEConnectionState(0), Unknown},
	}

	for _, tc := range testCases {
		t.Run(string(tc.want), func(t *testing.T) {
			assert.Equal(t, tc.want, FromICEConnectionState(tc.state))
		})
	}
}

func TestMonitorTracksLastState(t *testing.T) {
	var seen []Category
	m := NewMonitor(func(c Category) { seen = append(seen, c) })

	assert.Equal(t, New, m.Last())

	m.StateChanged(webrtc.ICEConnectionStateChecking)
	m.StateChanged(webrtc.ICEConnectionStateConnected)
	m.StateChanged(webrtc.ICEConnectionStateCompleted)

	assert.Equal(t, Completed, m.Last())
	assert.Equal(t, []Category{Checking, Connected, Completed}, seen)
}

func TestMonitorNilCallback(t *testing.T) {
	m := NewMonitor(nil)
	m.StateChanged(webrtc.ICEConnectionStateFailed)
	assert.Equal(t, Failed, m.Last())
}

func TestCandidateGatheredHandlesNil(t *testing.T) {
	m := NewMonitor(nil)
	// End-of-gathering marker must not panic.
	m.CandidateGathered(nil)
}
