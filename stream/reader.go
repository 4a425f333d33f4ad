// File: stream/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"errors"
	"io"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/pool"
)

// DefaultChunkSize is the read buffer size used when none is configured.
const DefaultChunkSize = 1024

// ReadAll reads in to exhaustion in chunkSize reads and returns the
// concatenation of every chunk, in order.
//
// Reading stops successfully when the stream reports no more bytes or ends
// with io.EOF. Zero-length reads are benign. A failing read yields an
// api.ReadIncomplete error carrying the bytes read so far and, when the
// stream reported one, its own error.
func ReadAll(in api.InputStream, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	bp := pool.ForSize(chunkSize)
	buf := bp.GetBuffer()
	defer bp.PutBuffer(buf)

	data := make([]byte, 0, chunkSize)
	for in.HasBytesAvailable() {
		n, err := in.Read(buf)
		if n < 0 {
			return nil, api.ReadIncomplete(data, err)
		}
		data = append(data, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, api.ReadIncomplete(data, err)
		}
	}
	return data, nil
}
