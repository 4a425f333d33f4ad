package stream_test

import (
	"errors"
	"io"
	"testing"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/fake"
	"github.com/momentics/hioload-ipc/stream"
)

func TestReadAllConcatenatesChunks(t *testing.T) {
	in := fake.NewInputStream("ab", "cd", "")
	data, err := stream.ReadAll(in, 1024)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "abcd" {
		t.Fatalf("got %q, want %q", data, "abcd")
	}
}

func TestReadAllSplitsLargeChunks(t *testing.T) {
	in := fake.NewInputStream("hello, world")
	data, err := stream.ReadAll(in, 5)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "hello, world" {
		t.Fatalf("got %q", data)
	}
	if in.Reads() != 3 {
		t.Errorf("expected 3 reads of 5 bytes max, got %d", in.Reads())
	}
}

func TestReadAllStopsAtEOF(t *testing.T) {
	in := fake.NewInputStream("xy").ThenEOF().Then(fake.Read{Data: []byte("never")})
	data, err := stream.ReadAll(in, 16)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "xy" {
		t.Fatalf("got %q, want %q", data, "xy")
	}
}

func TestReadAllEmptyStream(t *testing.T) {
	data, err := stream.ReadAll(fake.NewInputStream(), 0)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no data, got %q", data)
	}
}

func TestReadAllZeroReadIsBenign(t *testing.T) {
	in := fake.NewInputStream("a").Then(fake.Read{N: 0}).Then(fake.Read{Data: []byte("b")})
	data, err := stream.ReadAll(in, 8)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "ab" {
		t.Fatalf("got %q, want %q", data, "ab")
	}
}

func TestReadAllNegativeReadFails(t *testing.T) {
	in := fake.NewInputStream("part").Then(fake.Read{N: -1})
	_, err := stream.ReadAll(in, 8)
	if !errors.Is(err, api.ErrReadIncomplete) {
		t.Fatalf("expected ErrReadIncomplete, got %v", err)
	}
	var e *api.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if string(e.Partial) != "part" || e.Bytes != 4 {
		t.Errorf("partial = %q (%d bytes), want %q", e.Partial, e.Bytes, "part")
	}
}

func TestReadAllStreamErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	in := fake.NewInputStream("ab").Then(fake.Read{Err: boom})
	_, err := stream.ReadAll(in, 8)
	if !errors.Is(err, api.ErrReadIncomplete) {
		t.Fatalf("expected ErrReadIncomplete, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected the stream error to be wrapped, got %v", err)
	}
	if errors.Is(err, io.EOF) {
		t.Errorf("EOF must not be reported as a failure")
	}
}

func TestWriteAllWritesEverything(t *testing.T) {
	out := fake.NewOutputStream(fake.Write{Accept: 2}, fake.Write{Accept: 2})
	n, err := stream.WriteAll(out, []byte("abcd"))
	if err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	if n != 4 || string(out.Bytes()) != "abcd" {
		t.Fatalf("wrote %d bytes %q, want 4 bytes %q", n, out.Bytes(), "abcd")
	}
	if out.Writes() != 2 {
		t.Errorf("expected 2 writes, got %d", out.Writes())
	}
}

func TestWriteAllStopsOnZeroWrite(t *testing.T) {
	out := fake.NewOutputStream(fake.Write{Accept: 3}, fake.Write{Accept: 0})
	n, err := stream.WriteAll(out, []byte("abcdef"))
	if err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	if n != 3 {
		t.Fatalf("wrote %d bytes, want 3", n)
	}
}

func TestWriteAllStopsWithoutSpace(t *testing.T) {
	out := fake.NewOutputStream(fake.Write{Accept: 1})
	out.Full = true
	n, err := stream.WriteAll(out, []byte("abc"))
	if err != nil {
		t.Fatalf("WriteAll error: %v", err)
	}
	if n != 1 || out.Writes() != 1 {
		t.Fatalf("wrote %d bytes in %d writes, want 1 in 1", n, out.Writes())
	}
}

func TestWriteAllNegativeWriteFails(t *testing.T) {
	out := fake.NewOutputStream(fake.Write{Accept: 2}, fake.Write{Accept: -1})
	n, err := stream.WriteAll(out, []byte("abcd"))
	if !errors.Is(err, api.ErrWriteIncomplete) {
		t.Fatalf("expected ErrWriteIncomplete, got %v", err)
	}
	var e *api.Error
	if errors.As(err, &e) && e.Bytes != 2 {
		t.Errorf("Bytes = %d, want 2", e.Bytes)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}

func TestWriteAllEmptyPayload(t *testing.T) {
	out := fake.NewOutputStream()
	n, err := stream.WriteAll(out, nil)
	if err != nil || n != 0 || out.Writes() != 0 {
		t.Fatalf("n=%d err=%v writes=%d, want no write", n, err, out.Writes())
	}
}
