// Package stream implements the two stream loops of the exchange core:
// read-to-exhaustion and write-until-exhausted, plus socket-backed
// api.InputStream / api.OutputStream implementations.
package stream
