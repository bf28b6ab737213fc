// Package runerrors defines the typed failures surfaced by a batch run.
package runerrors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	repositoryLabelTemplateConstant        = "%s/%s"
	operationErrorTemplateConstant         = "%s %s failed: %v"
	operationErrorWithPhaseTemplate        = "%s phase: %s %s failed: %v"
	operationErrorWithoutRepositoryMessage = "%s failed: %v"
)

// ErrorKind classifies failures by their origin.
type ErrorKind string

// Supported error kinds.
const (
	KindConfiguration ErrorKind = ErrorKind("configuration")
	KindFilesystem    ErrorKind = ErrorKind("filesystem")
	KindSubprocess    ErrorKind = ErrorKind("subprocess")
)

// OperationError describes a failed operation against a repository.
type OperationError struct {
	Kind         ErrorKind
	Phase        string
	Operation    string
	Organization string
	Repository   string
	Cause        error
}

// Error renders the failure with its repository and phase context.
func (operationError OperationError) Error() string {
	if len(strings.TrimSpace(operationError.Repository)) == 0 {
		return fmt.Sprintf(operationErrorWithoutRepositoryMessage, operationError.Operation, operationError.Cause)
	}
	repositoryLabel := fmt.Sprintf(repositoryLabelTemplateConstant, operationError.Organization, operationError.Repository)
	if len(operationError.Phase) == 0 {
		return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, repositoryLabel, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorWithPhaseTemplate, operationError.Phase, operationError.Operation, repositoryLabel, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// KindOf reports the kind of the first OperationError found in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var operationError OperationError
	if !errors.As(err, &operationError) {
		return "", false
	}
	return operationError.Kind, true
}

// WithPhase returns err annotated with the phase when it is an OperationError.
func WithPhase(err error, phase string) error {
	var operationError OperationError
	if !errors.As(err, &operationError) {
		return err
	}
	operationError.Phase = phase
	return operationError
}
