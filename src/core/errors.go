package core

import (
	"errors"
	"fmt"
)

// Precondition failures. These are always wrapped with the offending target or flavor,
// so callers should test for them with errors.Is.
var (
	ErrInvalidTarget     = errors.New("invalid build target")
	ErrInvalidFlavor     = errors.New("invalid flavor")
	ErrFlavorOrdering    = errors.New("flavors must be ordered using natural ordering")
	ErrFlavorPresent     = errors.New("flavor already present")
	ErrFlavorAbsent      = errors.New("flavor not present")
	ErrFlavored          = errors.New("target is flavored")
	ErrRuleNotFound      = errors.New("rule not found")
	ErrDuplicateRule     = errors.New("rule already exists")
	ErrUnknownRuleType   = errors.New("unknown rule type")
	ErrDuplicateRuleType = errors.New("rule type already registered")
	ErrInvalidArg        = errors.New("invalid rule arguments")
	ErrNoTestResults     = errors.New("no test results found")
)

// A HumanReadableError is an error whose message is intended to be shown directly to the user,
// typically because it describes something they need to fix in their build definitions.
type HumanReadableError struct {
	msg string
}

// NewHumanReadableError returns a new HumanReadableError with a formatted message.
func NewHumanReadableError(format string, args ...interface{}) *HumanReadableError {
	return &HumanReadableError{msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (err *HumanReadableError) Error() string {
	return err.msg
}

// HumanReadableErrorMessage returns the user-facing message of a HumanReadableError
// somewhere in err's chain, and false if there isn't one.
func HumanReadableErrorMessage(err error) (string, bool) {
	var hre *HumanReadableError
	if errors.As(err, &hre) {
		return hre.msg, true
	}
	return "", false
}
