package batch

import (
	"fmt"
	"strings"
)

// FailurePolicy selects how the orchestrator reacts to a repository failure.
type FailurePolicy string

const (
	// FailurePolicyAbort stops the run at the first failing operation.
	FailurePolicyAbort FailurePolicy = FailurePolicy("abort")
	// FailurePolicyContinue records the failure and proceeds with the remaining repositories.
	FailurePolicyContinue FailurePolicy = FailurePolicy("continue")

	unsupportedPolicyTemplateConstant = "unsupported failure policy %q (expected %s or %s)"
)

// ParseFailurePolicy converts a textual policy into a FailurePolicy. Empty input selects abort.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", FailurePolicyAbort:
		return FailurePolicyAbort, nil
	case FailurePolicyContinue:
		return FailurePolicyContinue, nil
	default:
		return "", fmt.Errorf(unsupportedPolicyTemplateConstant, value, FailurePolicyAbort, FailurePolicyContinue)
	}
}
