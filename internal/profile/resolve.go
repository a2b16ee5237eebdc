package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tessitura-labs/lookback-api/internal/lookback"
)

// ResolveOptions carries the environment overrides applied on top of a named
// profile. Empty fields keep the profile's value. Note fields accept MIDI
// numbers or note names, the key field accepts a pitch class or a key name.
type ResolveOptions struct {
	Profile   string
	MinNote   string
	MaxNote   string
	Key       string
	Lookbacks string // Comma-separated step distances
}

// ResolveEncoder builds the active encoder from a named profile plus the
// given overrides. It returns the encoder and the profile it started from.
func ResolveEncoder(loader *Loader, opts ResolveOptions) (*lookback.Encoder, *Profile, error) {
	name := opts.Profile
	if name == "" {
		name = DefaultProfileName
	}

	p, err := loader.GetProfile(name)
	if err != nil {
		return nil, nil, err
	}

	cfg := p.EncoderConfig()

	if opts.MinNote != "" {
		value, err := parseNote(opts.MinNote)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid min note override: %w", err)
		}
		cfg.MinNote = value
	}
	if opts.MaxNote != "" {
		value, err := parseNote(opts.MaxNote)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid max note override: %w", err)
		}
		cfg.MaxNote = value
	}
	if opts.Key != "" {
		value, err := parseKey(opts.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid key override: %w", err)
		}
		cfg.TransposeToKey = value
	}
	if opts.Lookbacks != "" {
		distances, err := parseLookbacks(opts.Lookbacks)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid lookback override: %w", err)
		}
		cfg.LookbackDistances = distances
	}

	enc, err := lookback.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return enc, p, nil
}

func parseNote(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	return NoteNameToMIDI(value)
}

func parseKey(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	return KeyNameToIndex(value)
}

func parseLookbacks(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	distances := make([]int, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid lookback distance %q", part)
		}
		distances = append(distances, d)
	}
	return distances, nil
}
