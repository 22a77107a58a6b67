// ABOUTME: Version and product constants
// ABOUTME: Used for logging, CLI output, and the TUI header
package version

const (
	// Version is the semantic version of this build
	Version = "0.1.0"

	// Product is the user-facing product name
	Product = "Cadenza Player"

	// Manufacturer identifies the project
	Manufacturer = "Cadenza Audio"
)
