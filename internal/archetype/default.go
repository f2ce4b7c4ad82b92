package archetype

import _ "embed"

// defaultCoreJSON is the built-in core ESIA taxonomy, used when no core
// archetype path is configured.
//
//go:embed default.json
var defaultCoreJSON []byte
