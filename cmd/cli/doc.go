// Package cli constructs the git-manager command-line interface. It wires the
// Cobra root command, the tool settings loader, structured logging, and the
// batch pipeline that clones, automates, and publishes every configured
// repository.
package cli
