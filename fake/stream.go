// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted byte streams with predictable, controllable behavior for testing
// the stream reader and writer without sockets.

package fake

import (
	"io"
	"sync"
)

// Read is one scripted outcome of InputStream.Read.
type Read struct {
	Data []byte
	N    int // used instead of len(Data) when Data is nil, e.g. -1
	Err  error
}

// InputStream replays a list of reads. It reports bytes available until
// the script is exhausted.
type InputStream struct {
	mu     sync.Mutex
	script []Read
	reads  int
}

// NewInputStream creates a stream that returns each chunk in turn.
func NewInputStream(chunks ...string) *InputStream {
	s := &InputStream{}
	for _, c := range chunks {
		s.script = append(s.script, Read{Data: []byte(c)})
	}
	return s
}

// Then appends an arbitrary scripted read.
func (s *InputStream) Then(r Read) *InputStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, r)
	return s
}

// ThenEOF appends a read ending the stream.
func (s *InputStream) ThenEOF() *InputStream {
	return s.Then(Read{Err: io.EOF})
}

// HasBytesAvailable implements api.InputStream.
func (s *InputStream) HasBytesAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script) > 0
}

// Read implements api.InputStream. Chunks longer than p are split.
func (s *InputStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.script) == 0 {
		return 0, io.EOF
	}
	r := s.script[0]
	if r.Data == nil {
		s.script = s.script[1:]
		return r.N, r.Err
	}
	n := copy(p, r.Data)
	if n < len(r.Data) {
		s.script[0].Data = r.Data[n:]
		return n, nil
	}
	s.script = s.script[1:]
	return n, r.Err
}

// Reads returns how many times Read was called.
func (s *InputStream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Write is one scripted outcome of OutputStream.Write. Accept is the number
// of bytes taken, capped by the length offered.
type Write struct {
	Accept int
	Err    error
}

// OutputStream records written bytes according to a script. Once the
// script is exhausted it accepts everything, or reports no space when
// Full is set.
type OutputStream struct {
	mu      sync.Mutex
	script  []Write
	written []byte
	writes  int
	Full    bool
}

// NewOutputStream creates a stream following script.
func NewOutputStream(script ...Write) *OutputStream {
	return &OutputStream{script: script}
}

// HasSpaceAvailable implements api.OutputStream.
func (s *OutputStream) HasSpaceAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script) > 0 || !s.Full
}

// Write implements api.OutputStream.
func (s *OutputStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if len(s.script) == 0 {
		s.written = append(s.written, p...)
		return len(p), nil
	}
	w := s.script[0]
	s.script = s.script[1:]
	n := w.Accept
	if n > len(p) {
		n = len(p)
	}
	if n > 0 {
		s.written = append(s.written, p[:n]...)
	}
	return n, w.Err
}

// Bytes returns everything written so far.
func (s *OutputStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}

// Writes returns how many times Write was called.
func (s *OutputStream) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
