// Package agenterrors provides the coarse error taxonomy used across the
// certificate lifecycle engine. Call sites classify a failure by Kind
// rather than inspecting error strings, so the RPC facade and the
// renewer's retry logic can react to categories of failure uniformly.
package agenterrors

import "fmt"

// Kind provides a coarse category for AgentErrors.
type Kind int

const (
	InternalServer Kind = iota
	NotFound
	StatusConflict
	InvalidRequest
	Store
	Serialization
	Crypto
	Io
)

// AgentError represents a classified internal error.
type AgentError struct {
	Kind   Kind
	Detail string
}

func (e *AgentError) Error() string {
	return e.Detail
}

// New is a convenience function for creating a new AgentError.
func New(kind Kind, msg string, args ...interface{}) error {
	return &AgentError{
		Kind:   kind,
		Detail: fmt.Sprintf(msg, args...),
	}
}

// Is reports whether err is an AgentError of the given Kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*AgentError)
	if !ok {
		return false
	}
	return ae.Kind == kind
}

func NotFoundError(msg string, args ...interface{}) error {
	return New(NotFound, msg, args...)
}

func StatusConflictError(msg string, args ...interface{}) error {
	return New(StatusConflict, msg, args...)
}

func InvalidRequestError(msg string, args ...interface{}) error {
	return New(InvalidRequest, msg, args...)
}

func StoreError(msg string, args ...interface{}) error {
	return New(Store, msg, args...)
}

func SerializationError(msg string, args ...interface{}) error {
	return New(Serialization, msg, args...)
}

func CryptoError(msg string, args ...interface{}) error {
	return New(Crypto, msg, args...)
}

func IoError(msg string, args ...interface{}) error {
	return New(Io, msg, args...)
}

func InternalServerError(msg string, args ...interface{}) error {
	return New(InternalServer, msg, args...)
}
