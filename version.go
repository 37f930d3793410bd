package flowspec

import _ "embed"

// Version is the flowspec release, read from the VERSION file at build time.
//
//go:embed VERSION
var Version string
