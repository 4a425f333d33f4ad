// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-ipc.
//
// Provides:
//   - YAML configuration files with duration strings
//   - Prometheus collectors for exchanges, bytes moved and dropped events
//   - Named debug probes dumping loop and executor state
package control
