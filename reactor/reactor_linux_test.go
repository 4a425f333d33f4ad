//go:build linux

package reactor_test

import (
	"testing"

	"github.com/momentics/hioload-ipc/reactor"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestReactorReadiness(t *testing.T) {
	rc, err := reactor.NewReactor()
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer rc.Close()

	r, w := newPipe(t)
	if err := rc.Register(r, reactor.InterestRead); err != nil {
		t.Fatalf("Register: %v", err)
	}
	out := make([]reactor.Readiness, 4)

	n, err := rc.Wait(out, 0)
	if err != nil || n != 0 {
		t.Fatalf("empty pipe reported ready: n=%d err=%v", n, err)
	}

	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err = rc.Wait(out, 1000)
	if err != nil || n != 1 {
		t.Fatalf("Wait: n=%d err=%v", n, err)
	}
	if out[0].Fd != r || !out[0].Readable {
		t.Fatalf("unexpected readiness %+v", out[0])
	}

	// Level-triggered: still ready until drained.
	n, _ = rc.Wait(out, 0)
	if n != 1 {
		t.Fatalf("expected readiness to persist, got %d", n)
	}
	if err := rc.Unregister(r); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if n, _ := rc.Wait(out, 0); n != 0 {
		t.Fatalf("unregistered fd still reported, n=%d", n)
	}
	if err := rc.Unregister(r); err != nil {
		t.Fatalf("second Unregister must be a no-op, got %v", err)
	}
}

func TestReactorModifyAndHangup(t *testing.T) {
	rc, err := reactor.NewReactor()
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer rc.Close()

	r, w := newPipe(t)
	if err := rc.Register(w, reactor.InterestRead); err != nil {
		t.Fatalf("Register: %v", err)
	}
	out := make([]reactor.Readiness, 4)
	if n, _ := rc.Wait(out, 0); n != 0 {
		t.Fatalf("write end reported ready for read interest, n=%d", n)
	}
	if err := rc.Modify(w, reactor.InterestWrite); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	n, err := rc.Wait(out, 1000)
	if err != nil || n != 1 || !out[0].Writable {
		t.Fatalf("expected writable, n=%d err=%v out=%+v", n, err, out[0])
	}

	unix.Close(r)
	n, err = rc.Wait(out, 1000)
	if err != nil || n != 1 || !out[0].Hangup {
		t.Fatalf("expected hangup after reader closed, n=%d err=%v out=%+v", n, err, out[0])
	}
}

func TestInterestString(t *testing.T) {
	both := reactor.InterestRead | reactor.InterestWrite
	cases := []struct {
		in   reactor.Interest
		want string
	}{
		{0, "none"},
		{reactor.InterestRead, "read"},
		{reactor.InterestWrite, "write"},
		{both, "read|write"},
	}
	for _, c := range cases {
		if c.in.String() != c.want {
			t.Errorf("%d.String() = %q, want %q", c.in, c.in.String(), c.want)
		}
	}
	if !both.Has(reactor.InterestRead) || reactor.InterestRead.Has(both) {
		t.Error("Has must test bit membership")
	}
}
