// Package batch drives every configured repository through the setup,
// automation, and publish phases.
//
// Each phase is a complete pass over the ordered repositories before the next
// phase starts. The failure policy decides whether the first error ends the run
// or only removes the failing repository from later phases.
package batch
