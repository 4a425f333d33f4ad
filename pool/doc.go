// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable chunk buffers for the stream reader. Buffers are scratch space
// only; accumulated payloads are always copied out before a buffer returns
// to its pool.
package pool
