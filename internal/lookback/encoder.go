// Package lookback converts monophonic melody event sequences into the fixed
// width input vectors and class indices consumed by the lookback RNN, and
// converts generated class indices back into melody events.
//
// The model's label space is the set of melody events in the configured note
// range plus one extra class per lookback distance meaning "repeat whatever
// happened that many steps ago". Repeat classes let the model reproduce
// bar-level structure without learning long-range copying.
package lookback

import (
	"fmt"
)

const (
	// DefaultMinNote is inclusive, DefaultMaxNote exclusive: three octaves
	// centered on the melody register, C3 through B5.
	DefaultMinNote = 48
	DefaultMaxNote = 84

	// DefaultTransposeToKey is C. Melodies are transposed into this key
	// upstream before they reach the encoder.
	DefaultTransposeToKey = 0

	// NumBinaryCounters is the number of metric-position bits appended to
	// every input vector: 16th, 8th, quarter, half and whole note.
	NumBinaryCounters = 5
)

// DefaultLookbackDistances returns the standard lookback offsets: one bar
// and two bars. Distances must stay sorted ascending.
func DefaultLookbackDistances() []int {
	return []int{StepsPerBar, StepsPerBar * 2}
}

// Config carries the construction-time parameters of an Encoder. All fields
// are fixed for the encoder's lifetime once New returns.
type Config struct {
	MinNote           int   // inclusive lower bound of the note-on range
	MaxNote           int   // exclusive upper bound of the note-on range
	TransposeToKey    int   // 0-11, key melodies are squashed into upstream
	LookbackDistances []int // step offsets, sorted ascending
}

// DefaultConfig returns the canonical lookback RNN configuration.
func DefaultConfig() Config {
	return Config{
		MinNote:           DefaultMinNote,
		MaxNote:           DefaultMaxNote,
		TransposeToKey:    DefaultTransposeToKey,
		LookbackDistances: DefaultLookbackDistances(),
	}
}

// Encoder maps melody events to model inputs/labels and back. It is
// immutable after construction and safe for concurrent use.
type Encoder struct {
	minNote        int
	maxNote        int
	transposeToKey int
	lookbacks      []int
	numModelEvents int
}

// New validates cfg and builds an Encoder. The note range must cover at
// least one octave inside the MIDI pitch space, and lookback distances must
// be positive and strictly ascending.
func New(cfg Config) (*Encoder, error) {
	if cfg.MinNote < MinMIDIPitch {
		return nil, fmt.Errorf("min_note must be >= %d, got %d", MinMIDIPitch, cfg.MinNote)
	}
	if cfg.MaxNote > MaxMIDIPitch+1 {
		return nil, fmt.Errorf("max_note must be <= %d, got %d", MaxMIDIPitch+1, cfg.MaxNote)
	}
	if cfg.MaxNote-cfg.MinNote < NotesPerOctave {
		return nil, fmt.Errorf("note range must span at least one octave: [%d, %d)", cfg.MinNote, cfg.MaxNote)
	}
	if cfg.TransposeToKey < 0 || cfg.TransposeToKey > NotesPerOctave-1 {
		return nil, fmt.Errorf("transpose_to_key must be in [0, %d], got %d", NotesPerOctave-1, cfg.TransposeToKey)
	}
	if len(cfg.LookbackDistances) == 0 {
		return nil, fmt.Errorf("at least one lookback distance is required")
	}
	for i, d := range cfg.LookbackDistances {
		if d <= 0 {
			return nil, fmt.Errorf("lookback distances must be positive, got %d", d)
		}
		if i > 0 && d <= cfg.LookbackDistances[i-1] {
			return nil, fmt.Errorf("lookback distances must be strictly ascending, got %v", cfg.LookbackDistances)
		}
	}

	lookbacks := make([]int, len(cfg.LookbackDistances))
	copy(lookbacks, cfg.LookbackDistances)

	return &Encoder{
		minNote:        cfg.MinNote,
		maxNote:        cfg.MaxNote,
		transposeToKey: cfg.TransposeToKey,
		lookbacks:      lookbacks,
		numModelEvents: cfg.MaxNote - cfg.MinNote + NumSpecialEvents,
	}, nil
}

func (e *Encoder) MinNote() int        { return e.minNote }
func (e *Encoder) MaxNote() int        { return e.maxNote }
func (e *Encoder) TransposeToKey() int { return e.transposeToKey }

// LookbackDistances returns a copy of the configured lookback offsets.
func (e *Encoder) LookbackDistances() []int {
	out := make([]int, len(e.lookbacks))
	copy(out, e.lookbacks)
	return out
}

// NumModelEvents is the size of the dense melody event index space:
// one slot per pitch in [MinNote, MaxNote) plus the two sentinels.
func (e *Encoder) NumModelEvents() int {
	return e.numModelEvents
}

// InputSize is the length of every vector produced by EventsToInput: a
// one-hot block for the current event, one block per lookback distance for
// the would-be repeated event, five binary metric counters, and one repeat
// flag per lookback distance. For the default configuration this is
// 3*38 + 7 = 121.
func (e *Encoder) InputSize() int {
	return (1+len(e.lookbacks))*e.numModelEvents + NumBinaryCounters + len(e.lookbacks)
}

// NumClasses is the size of the label space: every model event plus one
// repeat class per lookback distance. For the default configuration this is
// 38 + 2 = 40.
func (e *Encoder) NumClasses() int {
	return e.numModelEvents + len(e.lookbacks)
}

// EventToModelIndex collapses a melody event into the dense zero-based
// range [0, NumModelEvents): 0 = no event, 1 = note off, and
// [2, NumModelEvents) = note-on relative to the [MinNote, MaxNote) range.
// The pitch must lie inside the configured range; out-of-range input is a
// caller error, not detected here.
func (e *Encoder) EventToModelIndex(ev MelodyEvent) int {
	if ev < 0 {
		return int(ev) + NumSpecialEvents
	}
	return int(ev) - e.minNote + NumSpecialEvents
}

// ModelIndexToEvent is the exact inverse of EventToModelIndex.
func (e *Encoder) ModelIndexToEvent(index int) MelodyEvent {
	if index < NumSpecialEvents {
		return MelodyEvent(index - NumSpecialEvents)
	}
	return MelodyEvent(index - NumSpecialEvents + e.minNote)
}

// EventsToInput builds the model input vector for one melody position.
//
// With the default configuration the 121 entries are laid out as:
//
//	[0, 38)    one-hot of the event at position
//	[38, 76)   one-hot of the next event if repeating from 1 bar ago
//	[76, 114)  one-hot of the next event if repeating from 2 bars ago
//	[114, 119) binary metric counters (16th, 8th, quarter, half, whole),
//	           +1.0/-1.0 for each bit of position+1
//	119        1.0 if the current event equals the event 1 bar ago
//	120        1.0 if the current event equals the event 2 bars ago
//
// The output depends only on events[0..position].
func (e *Encoder) EventsToInput(events []MelodyEvent, position int) []float64 {
	input := make([]float64, e.InputSize())
	n := e.numModelEvents

	// Current event.
	input[e.EventToModelIndex(events[position])] = 1.0

	// Next event if the melody were repeating from each lookback distance.
	// Before the melody is long enough the candidate is NoEvent.
	for i, distance := range e.lookbacks {
		lookbackPosition := position - distance + 1
		ev := NoEvent
		if lookbackPosition >= 0 {
			ev = events[lookbackPosition]
		}
		input[(i+1)*n+e.EventToModelIndex(ev)] = 1.0
	}

	// Binary clock over the metric location of the next step.
	tail := (1 + len(e.lookbacks)) * n
	step := position + 1
	for i := 0; i < NumBinaryCounters; i++ {
		if (step>>uint(i))&1 == 1 {
			input[tail+i] = 1.0
		} else {
			input[tail+i] = -1.0
		}
	}

	// Whether the current event is an exact repeat of each lookback offset.
	for i, distance := range e.lookbacks {
		lookbackPosition := position - distance
		if lookbackPosition >= 0 && events[position] == events[lookbackPosition] {
			input[tail+NumBinaryCounters+i] = 1.0
		}
	}

	return input
}

// EventsToLabel returns the training label for one melody position, in
// [0, NumClasses). Repeat classes outrank literal events, and more distant
// repeats outrank nearer ones:
//
//  1. positions before the largest lookback distance that hold NoEvent get
//     the repeat class of the largest distance: the melody is too young to
//     contain a real repeat, so empty steps default to the most distant one;
//  2. otherwise the first matching lookback distance, scanned largest to
//     smallest, wins;
//  3. otherwise the literal event's model index.
func (e *Encoder) EventsToLabel(events []MelodyEvent, position int) int {
	largest := e.lookbacks[len(e.lookbacks)-1]
	if position < largest && events[position] == NoEvent {
		return e.numModelEvents + len(e.lookbacks) - 1
	}

	for i := len(e.lookbacks) - 1; i >= 0; i-- {
		lookbackPosition := position - e.lookbacks[i]
		if lookbackPosition >= 0 && events[position] == events[lookbackPosition] {
			return e.numModelEvents + i
		}
	}

	return e.EventToModelIndex(events[position])
}

// ClassIndexToEvent resolves a model output class against the melody
// generated so far. Repeat classes read the event the matching distance
// back from the end of history, or NoEvent when the history is still too
// short; literal classes map straight back through ModelIndexToEvent.
//
// EventsToLabel decides repeats by comparing against the actual melody at
// encode time; this decode side reconstructs the same event by indexing
// history, so both must agree on which position is "distance steps back".
func (e *Encoder) ClassIndexToEvent(classIndex int, history []MelodyEvent) MelodyEvent {
	for i := len(e.lookbacks) - 1; i >= 0; i-- {
		if classIndex == e.numModelEvents+i {
			distance := e.lookbacks[i]
			if len(history) < distance {
				return NoEvent
			}
			return history[len(history)-distance]
		}
	}
	return e.ModelIndexToEvent(classIndex)
}

// LookbackForClass returns the lookback distance a repeat class stands for,
// or ok=false when the class encodes a literal event.
func (e *Encoder) LookbackForClass(classIndex int) (distance int, ok bool) {
	if classIndex >= e.numModelEvents && classIndex < e.numModelEvents+len(e.lookbacks) {
		return e.lookbacks[classIndex-e.numModelEvents], true
	}
	return 0, false
}

// EncodeSequence turns a whole melody into training pairs: inputs[i] is the
// input vector at position i and labels[i] the label at position i+1, so a
// melody of k events yields k-1 pairs. Melodies shorter than two events
// produce nothing.
func (e *Encoder) EncodeSequence(events []MelodyEvent) (inputs [][]float64, labels []int) {
	if len(events) < 2 {
		return nil, nil
	}
	inputs = make([][]float64, 0, len(events)-1)
	labels = make([]int, 0, len(events)-1)
	for i := 0; i < len(events)-1; i++ {
		inputs = append(inputs, e.EventsToInput(events, i))
		labels = append(labels, e.EventsToLabel(events, i+1))
	}
	return inputs, labels
}

// InputsBatch builds the priming inputs for a batch of melodies. With
// fullLength every position of every melody is encoded; otherwise only the
// final position of each melody is, which is what incremental generation
// feeds the model each step. Every melody must be non-empty.
func (e *Encoder) InputsBatch(melodies [][]MelodyEvent, fullLength bool) [][][]float64 {
	batch := make([][][]float64, 0, len(melodies))
	for _, events := range melodies {
		var inputs [][]float64
		if fullLength {
			inputs = make([][]float64, 0, len(events))
			for i := range events {
				inputs = append(inputs, e.EventsToInput(events, i))
			}
		} else {
			inputs = [][]float64{e.EventsToInput(events, len(events)-1)}
		}
		batch = append(batch, inputs)
	}
	return batch
}

// ValidateEvents checks that every element is a sentinel or a pitch inside
// [MinNote, MaxNote). The conversion methods assume validated input; callers
// crossing a trust boundary run this first.
func (e *Encoder) ValidateEvents(events []MelodyEvent) error {
	for i, ev := range events {
		if ev.IsSentinel() {
			continue
		}
		if int(ev) < e.minNote || int(ev) >= e.maxNote {
			return fmt.Errorf("event %d: pitch %d outside configured range [%d, %d)", i, int(ev), e.minNote, e.maxNote)
		}
	}
	return nil
}

// ArgmaxClassIndex picks the highest-scoring class from a model output
// distribution, taking the lowest index on ties. Deterministic greedy
// decode; temperature sampling belongs to the generation host.
func ArgmaxClassIndex(distribution []float64) int {
	best := 0
	for i, v := range distribution {
		if v > distribution[best] {
			best = i
		}
	}
	return best
}
