package lookback

// MelodyEvent is one step of a monophonic melody. The two negative sentinel
// values below mark steps with no new sound; non-negative values are MIDI
// note-on pitches (0-127).
type MelodyEvent int

const (
	// NoEvent marks a step where nothing changes: the previous note (or
	// silence) simply continues.
	NoEvent MelodyEvent = -2
	// NoteOff marks a step that releases the sounding note.
	NoteOff MelodyEvent = -1
)

const (
	// NumSpecialEvents is the number of sentinel event values (NoEvent and
	// NoteOff). Sentinels occupy the first model-event indices.
	NumSpecialEvents = 2

	// MinMIDIPitch and MaxMIDIPitch bound the valid note-on range.
	MinMIDIPitch = 0
	MaxMIDIPitch = 127

	NotesPerOctave = 12

	// StepsPerBar assumes melodies quantized to 16 steps per 4/4 bar
	// (16th-note resolution). The binary metric counters and the default
	// lookback distances are built on this grid.
	StepsPerBar = 16
)

// IsNoteOn reports whether the event starts a new note.
func (e MelodyEvent) IsNoteOn() bool {
	return e >= 0
}

// IsSentinel reports whether the event is NoEvent or NoteOff.
func (e MelodyEvent) IsSentinel() bool {
	return e == NoEvent || e == NoteOff
}
