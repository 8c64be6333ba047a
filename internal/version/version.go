// ABOUTME: Build and product identification constants
// ABOUTME: Reported in handshakes and startup logs
package version

const (
	// Version is the semantic version of this build
	Version = "0.1.0"

	// Product is the product name reported to peers
	Product = "DoraROSBridge Audio Sink"

	// Manufacturer identifies the project
	Manufacturer = "DoraROSBridge"
)
