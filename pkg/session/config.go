/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package session builds and delivers the one-shot session.update message
// sent over the data channel once it opens.
package session

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DefaultInstructions is the instruction string sent with the default config.
const DefaultInstructions = "You are connected from a Go client with advanced VAD enabled (PCM24)."

// VADConfig selects the voice-activity-detection behavior.
type VADConfig struct {
	Mode string `json:"mode"`
}

// Config describes the desired audio/text formats and VAD behavior for the
// realtime session. Field order matches the wire message.
type Config struct {
	InputAudioFormat       string    `json:"input_audio_format"`
	InputText              bool      `json:"input_text"`
	OutputAudioFormat      string    `json:"output_audio_format"`
	OutputText             bool      `json:"output_text"`
	VoiceActivityDetection VADConfig `json:"voice_activity_detection"`
	Instructions           string    `json:"instructions"`
}

// DefaultConfig returns the fixed session configuration: PCM24 audio both
// ways, text enabled both ways, advanced VAD.
func DefaultConfig() Config {
	return Config{
		InputAudioFormat:       "pcm24",
		InputText:              true,
		OutputAudioFormat:      "pcm24",
		OutputText:             true,
		VoiceActivityDetection: VADConfig{Mode: "advanced"},
		Instructions:           DefaultInstructions,
	}
}

type updateEvent struct {
	Type    string `json:"type"`
	Session Config `json:"session"`
}

// TextSender is the slice of the data channel the configurator needs.
type TextSender interface {
	SendText(text string) error
}

// Configurator serializes the session config and sends it once at
// channel-open time. Delivery is fire-and-forget; no acknowledgement exists
// on this channel.
type Configurator struct {
	cfg Config
}

// NewConfigurator wraps a config for sending.
func NewConfigurator(cfg Config) *Configurator {
	return &Configurator{cfg: cfg}
}

// Message renders the session.update wire message.
func (c *Configurator) Message() ([]byte, error) {
	b, err := json.Marshal(updateEvent{Type: "session.update", Session: c.cfg})
	if err != nil {
		return nil, fmt.Errorf("encode session.update: %w", err)
	}
	return b, nil
}

// Send serializes the config and writes it to the channel as a single text
// message.
func (c *Configurator) Send(ch TextSender) error {
	msg, err := c.Message()
	if err != nil {
		return err
	}
	if err := ch.SendText(string(msg)); err != nil {
		return fmt.Errorf("send session.update: %w", err)
	}
	log.WithFields(log.Fields{"bytes": len(msg)}).Infoln("session.update sent")
	return nil
}
