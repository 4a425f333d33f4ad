// Package api
// Author: momentics <momentics@gmail.com>
//
// Byte stream contracts driven by the stream reader and writer.

package api

// InputStream is a readable byte stream.
//
// Read returns io.EOF once the stream has ended. A zero-length read with a
// nil error is benign.
type InputStream interface {
	HasBytesAvailable() bool
	Read(p []byte) (int, error)
}

// OutputStream is a writable byte stream. A zero-length write with a nil
// error signals that the stream accepts no more bytes.
type OutputStream interface {
	HasSpaceAvailable() bool
	Write(p []byte) (int, error)
}
