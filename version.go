package espalier

import _ "embed"

// Version is the release version, embedded from version.txt so the CLI
// and the MCP server report the same value.
//
//go:embed version.txt
var Version string
