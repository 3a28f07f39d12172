// Package bridgeerr defines the error taxonomy shared by every component
// of the GPIO bridge: HardwareError, TransientRPCError, DocumentSchemaError,
// and FatalError.
package bridgeerr

import "fmt"

// Kind classifies a bridge error for callers that need to branch on it
// without string-matching Error().
type Kind string

const (
	KindHardware       Kind = "HARDWARE"
	KindTransientRPC    Kind = "TRANSIENT_RPC"
	KindDocumentSchema  Kind = "DOCUMENT_SCHEMA"
	KindFatal           Kind = "FATAL"
)

// BridgeError is the concrete error type behind every Err* constructor.
type BridgeError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Hardware wraps a HAL failure: a SetDigital/SetPWM/Configure/ReadDigital
// call that returned an error. Callers must not update cached state for
// the failed transition.
func Hardware(msg string, err error) error {
	return &BridgeError{Kind: KindHardware, Message: msg, Err: err}
}

// TransientRPC wraps a cloud document-store timeout or connection failure.
func TransientRPC(msg string, err error) error {
	return &BridgeError{Kind: KindTransientRPC, Message: msg, Err: err}
}

// DocumentSchema wraps a malformed document field (wrong type, out of
// range). The caller must not crash; it skips or rejects the offending
// entry.
func DocumentSchema(msg string) error {
	return &BridgeError{Kind: KindDocumentSchema, Message: msg}
}

// Fatal wraps an unrecoverable bootstrap failure (HAL cannot be
// constructed, identity cannot be obtained). The only legal response is
// process exit.
func Fatal(msg string, err error) error {
	return &BridgeError{Kind: KindFatal, Message: msg, Err: err}
}

// Is reports whether err is a BridgeError of the given Kind.
func Is(err error, kind Kind) bool {
	be, ok := err.(*BridgeError)
	return ok && be.Kind == kind
}
