/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package engine abstracts the WebRTC engine behind a small contract so the
// negotiation logic never touches pion directly.
package engine

// Description is an opaque session description exchanged during negotiation.
// Immutable once created; the body is raw SDP text.
type Description struct {
	Type string
	SDP  string
}

// Description types.
const (
	DescriptionOffer  = "offer"
	DescriptionAnswer = "answer"
)

// DataChannel is the transient reference the negotiation core holds to the
// engine-owned data channel. The engine keeps ownership of the channel itself.
type DataChannel interface {
	Label() string
	OnOpen(func())
	SendText(text string) error
}

// Engine is the black-box WebRTC collaborator. Offer creation completes
// asynchronously; the done callback receives the generated description.
type Engine interface {
	CreateDataChannel(label string) (DataChannel, error)
	CreateOffer(done func(Description, error))
	SetLocalDescription(Description) error
	SetRemoteDescription(Description) error
}
