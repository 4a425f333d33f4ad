// File: stream/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import "github.com/momentics/hioload-ipc/api"

// WriteAll writes data to out while it has space and bytes remain, and
// returns the number of bytes written.
//
// A write accepting zero bytes ends the loop without error; callers compare
// the count with len(data) to detect a short write. A failing write yields
// an api.WriteIncomplete error carrying the bytes written before it.
func WriteAll(out api.OutputStream, data []byte) (int, error) {
	remaining := len(data)
	for remaining > 0 && out.HasSpaceAvailable() {
		n, err := out.Write(data[len(data)-remaining:])
		if n < 0 {
			return len(data) - remaining, api.WriteIncomplete(len(data)-remaining, err)
		}
		remaining -= n
		if err != nil {
			return len(data) - remaining, api.WriteIncomplete(len(data)-remaining, err)
		}
		if n == 0 {
			break
		}
	}
	return len(data) - remaining, nil
}
