// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness reactor interface.

package reactor

// Interest is the set of readiness conditions a descriptor is watched for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// Has reports whether all bits of o are set in i.
func (i Interest) Has(o Interest) bool { return i&o == o }

func (i Interest) String() string {
	switch i {
	case 0:
		return "none"
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestRead | InterestWrite:
		return "read|write"
	default:
		return "invalid"
	}
}

// Readiness is one notification returned by Wait.
type Readiness struct {
	Fd       int
	Readable bool
	Writable bool
	Hangup   bool // peer closed or socket error pending
}

// EventReactor watches descriptors for readiness. Implementations are
// level-triggered.
type EventReactor interface {
	// Register adds fd with the given interest.
	Register(fd int, interest Interest) error

	// Modify replaces the interest of a registered fd.
	Modify(fd int, interest Interest) error

	// Unregister removes fd. Unknown descriptors are not an error.
	Unregister(fd int) error

	// Wait blocks up to timeoutMs (negative: forever) and fills out.
	Wait(out []Readiness, timeoutMs int) (int, error)

	// Close cleans up resources.
	Close() error
}
