package profile

import (
	"encoding/json"
	"testing"
)

func TestNewProfileLoader(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}
	if loader == nil {
		t.Fatal("NewProfileLoader() returned nil")
	}
}

func TestEmbeddedProfileBounds(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}

	tests := []struct {
		name    string
		minNote int
		maxNote int
	}{
		{"default", 48, 84},
		{"bass", 24, 60},
		{"wide", 21, 109},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := loader.GetProfile(tt.name)
			if err != nil {
				t.Fatalf("GetProfile(%q) returned error: %v", tt.name, err)
			}
			if int(p.MinNote) != tt.minNote {
				t.Errorf("MinNote = %d, want %d", p.MinNote, tt.minNote)
			}
			if int(p.MaxNote) != tt.maxNote {
				t.Errorf("MaxNote = %d, want %d", p.MaxNote, tt.maxNote)
			}
			if len(p.LookbackDistances) != 2 || p.LookbackDistances[0] != 16 || p.LookbackDistances[1] != 32 {
				t.Errorf("LookbackDistances = %v, want [16 32]", p.LookbackDistances)
			}
			if p.Description == "" {
				t.Error("Description is empty")
			}
		})
	}
}

func TestGetProfileUnknown(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}

	if _, err := loader.GetProfile("theremin"); err == nil {
		t.Error("GetProfile() for an unknown name did not return an error")
	}
}

func TestDefaultProfile(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}

	p := loader.DefaultProfile()
	if p == nil {
		t.Fatal("DefaultProfile() returned nil")
	}
	if p.Name != DefaultProfileName {
		t.Errorf("DefaultProfile().Name = %q, want %q", p.Name, DefaultProfileName)
	}
}

func TestListProfilesSorted(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}

	list := loader.ListProfiles()
	if len(list) != 3 {
		t.Fatalf("ListProfiles() returned %d profiles, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Errorf("ListProfiles() not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
}

func TestProfileNewEncoder(t *testing.T) {
	loader, err := NewProfileLoader()
	if err != nil {
		t.Fatalf("NewProfileLoader() returned error: %v", err)
	}

	for _, p := range loader.ListProfiles() {
		enc, err := p.NewEncoder()
		if err != nil {
			t.Fatalf("NewEncoder() for profile %q returned error: %v", p.Name, err)
		}
		if enc.MinNote() != int(p.MinNote) {
			t.Errorf("encoder MinNote = %d, want %d", enc.MinNote(), p.MinNote)
		}
	}

	enc, err := loader.DefaultProfile().NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder() for default profile returned error: %v", err)
	}
	if enc.InputSize() != 121 {
		t.Errorf("default profile InputSize = %d, want 121", enc.InputSize())
	}
	if enc.NumClasses() != 40 {
		t.Errorf("default profile NumClasses = %d, want 40", enc.NumClasses())
	}
}

func TestNoteNameToMIDI(t *testing.T) {
	tests := []struct {
		noteName string
		want     int
		wantErr  bool
	}{
		{"C4", 60, false},
		{"c4", 60, false},
		{"A0", 21, false},
		{"F#3", 54, false},
		{"Bb2", 46, false},
		{"C-1", 0, false},
		{"G9", 127, false},
		{"A9", 0, true}, // above the MIDI range
		{"C", 0, true},  // missing octave
		{"C#", 0, true}, // missing octave after accidental
		{"H2", 0, true}, // invalid letter
		{"Cx", 0, true}, // invalid octave
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.noteName, func(t *testing.T) {
			got, err := NoteNameToMIDI(tt.noteName)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NoteNameToMIDI(%q) = %d, want error", tt.noteName, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NoteNameToMIDI(%q) returned error: %v", tt.noteName, err)
			}
			if got != tt.want {
				t.Errorf("NoteNameToMIDI(%q) = %d, want %d", tt.noteName, got, tt.want)
			}
		})
	}
}

func TestKeyNameToIndex(t *testing.T) {
	tests := []struct {
		keyName string
		want    int
		wantErr bool
	}{
		{"C", 0, false},
		{"c", 0, false},
		{"F#", 6, false},
		{"Gb", 6, false},
		{"bb", 10, false},
		{"B", 11, false},
		{"H", 0, true},
		{"C##", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			got, err := KeyNameToIndex(tt.keyName)
			if tt.wantErr {
				if err == nil {
					t.Errorf("KeyNameToIndex(%q) = %d, want error", tt.keyName, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("KeyNameToIndex(%q) returned error: %v", tt.keyName, err)
			}
			if got != tt.want {
				t.Errorf("KeyNameToIndex(%q) = %d, want %d", tt.keyName, got, tt.want)
			}
		})
	}
}

func TestNoteValueUnmarshalForms(t *testing.T) {
	var p Profile
	raw := `{
		"name": "test",
		"min_note": 36,
		"max_note": "60",
		"transpose_to_key": 7,
		"lookback_distances": [8]
	}`

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if int(p.MinNote) != 36 {
		t.Errorf("MinNote = %d, want 36", p.MinNote)
	}
	if int(p.MaxNote) != 60 {
		t.Errorf("MaxNote = %d, want 60", p.MaxNote)
	}
	if int(p.TransposeToKey) != 7 {
		t.Errorf("TransposeToKey = %d, want 7", p.TransposeToKey)
	}

	var bad Profile
	if err := json.Unmarshal([]byte(`{"min_note": "X9"}`), &bad); err == nil {
		t.Error("Unmarshal accepted an invalid note name")
	}
}
