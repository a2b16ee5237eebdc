package models

import (
	"github.com/tessitura-labs/lookback-api/internal/lookback"
)

// Melody is a monophonic event sequence in the wire format. Each step is an
// int: -2 marks a step with no new event, -1 a note off, and 0-127 a MIDI
// note-on pitch. Melodies are expected to be quantized to sixteenth steps
// before they reach the API.
type Melody []int

// Events converts the wire form to encoder events.
func (m Melody) Events() []lookback.MelodyEvent {
	events := make([]lookback.MelodyEvent, len(m))
	for i, v := range m {
		events[i] = lookback.MelodyEvent(v)
	}
	return events
}

// MelodyFromEvents converts encoder events back to the wire form.
func MelodyFromEvents(events []lookback.MelodyEvent) Melody {
	melody := make(Melody, len(events))
	for i, ev := range events {
		melody[i] = int(ev)
	}
	return melody
}
