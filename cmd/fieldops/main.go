// fieldops: field task coordination server.
//
// Usage:
//
//	fieldops serve     # Run the HTTP server
//	fieldops mcp       # Serve read-only MCP tools over stdio
//	fieldops seed      # Populate development fixtures
//	fieldops reset     # Wipe the database
//	fieldops version   # Print the version
package main

import (
	"fmt"
	"os"

	"fieldops/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
