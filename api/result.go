// Package api
// Author: momentics@gmail.com
//
// Generic result carrying either a payload or the error explaining its absence.

package api

// Result wraps any payload or error. Exactly one side is meaningful:
// when Err is nil, Value holds the outcome.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok builds a successful result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail builds a failed result.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// Get unpacks the result into the usual Go pair.
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

// Payload is an opaque byte sequence. The transport never inspects it.
type Payload = []byte

// ResultHandler receives the single outcome of a client exchange.
type ResultHandler func(Result[Payload])

// RequestHandler receives every request read by a server.
type RequestHandler func(Result[Payload])

// ResponseProducer yields the reply for the current connection; nil means no reply.
type ResponseProducer func() Payload
