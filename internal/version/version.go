// ABOUTME: Build version and product identification
// ABOUTME: Version is overridden at link time with -ldflags -X
package version

// Version is the release version, set by the build
var Version = "dev"

const (
	Product      = "cuedeck"
	Manufacturer = "cuedeck"
)

// String formats the product and version for banners
func String() string {
	return Product + " " + Version
}
