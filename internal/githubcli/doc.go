// Package githubcli wraps GitHub CLI invocations used after a branch is published.
package githubcli
