// Package buildinfo holds version stamps for the bukubesar binary. Release
// builds set them with
//
//	-ldflags "-X github.com/cleared-dev/bukubesar/internal/buildinfo.Version=..."
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "none"
	// Date is the build time.
	Date = "unknown"
)
