// Package gitrepo runs the git commands applied to each repository of a batch.
//
// RepositoryOperations clones a repository into its workspace directory and
// then creates, checks out, stages, commits, and pushes inside that directory.
package gitrepo
