package signer

import (
	"errors"
	"fmt"
)

// LoadErrorCode categorizes load failures.
type LoadErrorCode string

const (
	ErrCodeBadReference       LoadErrorCode = "BAD_REFERENCE"
	ErrCodeArtifactNotFound   LoadErrorCode = "ARTIFACT_NOT_FOUND"
	ErrCodeArtifactUnreadable LoadErrorCode = "ARTIFACT_UNREADABLE"
	ErrCodeEvalFailed         LoadErrorCode = "ARTIFACT_EVAL_FAILED"
	ErrCodeEntryNotFound      LoadErrorCode = "ENTRY_NOT_FOUND"
	ErrCodeEntryNotCallable   LoadErrorCode = "ENTRY_NOT_CALLABLE"
	ErrCodeEntryArity         LoadErrorCode = "ENTRY_ARITY"
	ErrCodeUnknownNative      LoadErrorCode = "UNKNOWN_NATIVE"
	ErrCodeNativeInit         LoadErrorCode = "NATIVE_INIT_FAILED"
)

// LoadError reports that no callable could be obtained from an artifact.
// It is fatal: there is no fallback signing implementation.
type LoadError struct {
	Code    LoadErrorCode
	Ref     string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Ref != "" {
		msg = fmt.Sprintf("%s (artifact=%s)", msg, e.Ref)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InvokeError reports that the signing call raised or returned something
// other than a signature.
type InvokeError struct {
	Entry   string
	Message string
	Err     error
}

func (e *InvokeError) Error() string {
	msg := e.Message
	if e.Entry != "" {
		msg = fmt.Sprintf("%s: %s", e.Entry, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// LoadErrorCodeOf returns the code of a wrapped *LoadError, or "".
func LoadErrorCodeOf(err error) LoadErrorCode {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsInvokeError reports whether err wraps an *InvokeError.
func IsInvokeError(err error) bool {
	var ie *InvokeError
	return errors.As(err, &ie)
}
