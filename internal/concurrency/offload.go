// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-ipc/api"

// Offload runs work and then done. With a nil executor both run inline on
// the caller, which is the loop goroutine. Otherwise work runs on exec and
// done is posted back to loop, so done always runs on the loop. If the loop
// has closed in the meantime done is dropped: shutdown already aborted the
// handler that would have received it.
func Offload(loop api.Loop, exec api.Executor, work, done func()) {
	if exec == nil {
		work()
		done()
		return
	}
	err := exec.Submit(func() {
		work()
		_ = loop.Post(done)
	})
	if err != nil {
		work()
		done()
	}
}
