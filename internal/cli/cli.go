// Package cli implements the siphon command-line interface.
//
// # Commands
//
//   - render: evaluate a layout script and export a cell to SVG, PNG or DXF
//   - types: list the registered PCell types and their parameters
//   - version: print build information
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli
