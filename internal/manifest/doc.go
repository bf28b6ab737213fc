// Package manifest loads and validates the batch document that drives a run.
//
// The document names the organizations and repositories to process and the
// general parameters shared by every repository: the branch to work on, the
// playbook directory to overlay, the commit message and the paths to stage.
// Validation is fail-fast and reports the first missing field in a fixed order.
package manifest
