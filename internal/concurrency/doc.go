// Package concurrency provides the socket event loop and the executor that
// can take stream I/O off it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package concurrency
