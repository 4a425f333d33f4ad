package concurrency_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-ipc/fake"
	"github.com/momentics/hioload-ipc/internal/concurrency"
)

func TestExecutorRunsAllTasks(t *testing.T) {
	e := concurrency.NewExecutor(4, quietLogger())
	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := e.Submit(func() { n.Add(1); wg.Done() }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	e.Close()

	if n.Load() != 100 {
		t.Fatalf("ran %d tasks, want 100", n.Load())
	}
	stats := e.Stats()
	if stats["completed_tasks"] != 100 || stats["pending_tasks"] != 0 {
		t.Errorf("unexpected stats %v", stats)
	}
	if e.NumWorkers() != 0 {
		t.Errorf("workers still running after Close: %d", e.NumWorkers())
	}
}

func TestExecutorSubmitAfterClose(t *testing.T) {
	e := concurrency.NewExecutor(1, quietLogger())
	e.Close()
	if err := e.Submit(func() {}); !errors.Is(err, concurrency.ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}

func TestExecutorSurvivesPanics(t *testing.T) {
	e := concurrency.NewExecutor(1, quietLogger())
	defer e.Close()
	done := make(chan struct{})
	_ = e.Submit(func() { panic("task failure") })
	_ = e.Submit(func() { close(done) })
	<-done
}

func TestOffloadInlineWithoutExecutor(t *testing.T) {
	loop := &fake.Loop{}
	var order []string
	concurrency.Offload(loop, nil,
		func() { order = append(order, "work") },
		func() { order = append(order, "done") })
	if len(order) != 2 || order[0] != "work" || order[1] != "done" {
		t.Fatalf("unexpected order %v", order)
	}
	if loop.Posted() != 0 {
		t.Errorf("inline offload must not post, posted %d", loop.Posted())
	}
}

func TestOffloadPostsCompletionToLoop(t *testing.T) {
	loop := &fake.Loop{}
	exec := &fake.Executor{}
	var order []string
	concurrency.Offload(loop, exec,
		func() { order = append(order, "work") },
		func() { order = append(order, "done") })
	if len(order) != 2 || order[1] != "done" {
		t.Fatalf("unexpected order %v", order)
	}
	if exec.Tasks() != 1 || loop.Posted() != 1 {
		t.Errorf("tasks=%d posted=%d, want 1 and 1", exec.Tasks(), loop.Posted())
	}
}

func TestOffloadFallsBackWhenExecutorRejects(t *testing.T) {
	loop := &fake.Loop{}
	exec := &fake.Executor{Closed: true}
	ran := 0
	concurrency.Offload(loop, exec, func() { ran++ }, func() { ran++ })
	if ran != 2 {
		t.Fatalf("ran %d steps, want 2", ran)
	}
}
