package profile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/pkg/embedded"
)

// DefaultProfileName is the profile served when no override is configured.
const DefaultProfileName = "default"

// Profile is a named, embedded encoder configuration. Note bounds accept
// either MIDI numbers or note names, keys accept either pitch classes or
// key names, so the JSON definitions stay readable.
type Profile struct {
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	MinNote           NoteValue `json:"min_note"`
	MaxNote           NoteValue `json:"max_note"`
	TransposeToKey    KeyValue  `json:"transpose_to_key"`
	LookbackDistances []int     `json:"lookback_distances"`
}

// EncoderConfig returns the encoder configuration this profile describes.
func (p *Profile) EncoderConfig() lookback.Config {
	return lookback.Config{
		MinNote:           int(p.MinNote),
		MaxNote:           int(p.MaxNote),
		TransposeToKey:    int(p.TransposeToKey),
		LookbackDistances: append([]int(nil), p.LookbackDistances...),
	}
}

// NewEncoder builds an encoder from this profile.
func (p *Profile) NewEncoder() (*lookback.Encoder, error) {
	return lookback.New(p.EncoderConfig())
}

// NoteValue is a MIDI note number that unmarshals from a JSON number, a
// numeric string, or a note name like "C3" or "F#2".
type NoteValue int

func (n *NoteValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if value, err := strconv.Atoi(name); err == nil {
			*n = NoteValue(value)
			return nil
		}
		midiNote, err := NoteNameToMIDI(name)
		if err != nil {
			return err
		}
		*n = NoteValue(midiNote)
		return nil
	}

	var value int
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*n = NoteValue(value)
	return nil
}

// KeyValue is a pitch class 0-11 that unmarshals from a JSON number or a key
// name like "C" or "F#".
type KeyValue int

func (k *KeyValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		index, err := KeyNameToIndex(name)
		if err != nil {
			return err
		}
		*k = KeyValue(index)
		return nil
	}

	var value int
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*k = KeyValue(value)
	return nil
}

// Loader serves the embedded encoder profiles. All profiles are parsed and
// validated once at construction.
type Loader struct {
	profiles map[string]*Profile
}

// NewProfileLoader parses every embedded profile definition and verifies each
// one builds a working encoder.
func NewProfileLoader() (*Loader, error) {
	sources := [][]byte{
		embedded.DefaultProfileJSON,
		embedded.BassProfileJSON,
		embedded.WideProfileJSON,
	}

	profiles := make(map[string]*Profile, len(sources))
	for _, raw := range sources {
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid profile definition: %w", err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("profile definition missing name")
		}
		if _, exists := profiles[p.Name]; exists {
			return nil, fmt.Errorf("duplicate profile name: %s", p.Name)
		}
		if _, err := lookback.New(p.EncoderConfig()); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		profiles[p.Name] = &p
	}

	if _, ok := profiles[DefaultProfileName]; !ok {
		return nil, fmt.Errorf("no %q profile embedded", DefaultProfileName)
	}

	return &Loader{profiles: profiles}, nil
}

// GetProfile returns the profile with the given name.
func (l *Loader) GetProfile(name string) (*Profile, error) {
	p, ok := l.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown encoder profile: %s", name)
	}
	return p, nil
}

// DefaultProfile returns the default profile.
func (l *Loader) DefaultProfile() *Profile {
	return l.profiles[DefaultProfileName]
}

// ListProfiles returns all profiles sorted by name.
func (l *Loader) ListProfiles() []*Profile {
	list := make([]*Profile, 0, len(l.profiles))
	for _, p := range l.profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// noteOffsets maps note letters to semitone offsets from C.
var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// keyOffsets maps key names to pitch classes, covering both sharp and flat
// spellings.
var keyOffsets = map[string]int{
	"C":  0,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E":  4,
	"F":  5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B": 11,
}

// NoteNameToMIDI converts a note name like "A0", "C4", "F#3", "Bb2" to a MIDI
// note number.
// Format: <note><accidental?><octave> where:
//   - note: A-G (case insensitive)
//   - accidental: # (sharp) or b (flat), optional
//   - octave: -1 to 9 (C4 = 60 = middle C)
func NoteNameToMIDI(noteName string) (int, error) {
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %s", noteName)
	}

	noteChar := strings.ToUpper(string(noteName[0]))
	semitone, ok := noteOffsets[noteChar]
	if !ok {
		return 0, fmt.Errorf("invalid note letter: %s", noteChar)
	}

	idx := 1
	if noteName[idx] == '#' {
		semitone++
		idx++
	} else if noteName[idx] == 'b' {
		semitone--
		idx++
	}

	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %s", noteName)
	}

	octave, err := strconv.Atoi(noteName[idx:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note name %s: %w", noteName, err)
	}

	// C-1 = 0, C0 = 12, C4 = 60
	midiNote := (octave+1)*12 + semitone
	if midiNote < lookback.MinMIDIPitch || midiNote > lookback.MaxMIDIPitch+1 {
		return 0, fmt.Errorf("note %s is outside the MIDI range", noteName)
	}

	return midiNote, nil
}

// KeyNameToIndex converts a key name like "C", "f#" or "Bb" to its pitch
// class 0-11.
func KeyNameToIndex(name string) (int, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("empty key name")
	}

	normalized := strings.ToUpper(trimmed[:1]) + trimmed[1:]
	index, ok := keyOffsets[normalized]
	if !ok {
		return 0, fmt.Errorf("invalid key name: %s", name)
	}
	return index, nil
}
