// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions git-manager uses to
// run git, ansible-playbook, and gh in a testable manner.
package execshell
