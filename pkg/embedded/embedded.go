package embedded

import (
	_ "embed"
)

// Embed all encoder profile definitions
//
//go:embed data/profiles/default.json
var DefaultProfileJSON []byte

//go:embed data/profiles/bass.json
var BassProfileJSON []byte

//go:embed data/profiles/wide.json
var WideProfileJSON []byte
