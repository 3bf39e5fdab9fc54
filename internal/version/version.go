// Package version carries build identity, injected at link time.
package version

// Set via -ldflags "-X github.com/groblegark/teleterm/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = ""
)

// ShortCommit returns the first 12 characters of a commit hash.
func ShortCommit(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
