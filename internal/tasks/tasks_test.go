package tasks

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestTaskWaitReturnsError(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	boom := errors.New("boom")

	task := r.Go("fail", func() error { return boom })
	if err := task.Wait(); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	select {
	case <-task.Done():
	default:
		t.Error("Done should be closed after Wait")
	}
}

func TestTaskRecoversPanic(t *testing.T) {
	r := NewRunner(zerolog.Nop())

	err := r.Go("panic", func() error { panic("bad") }).Wait()
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Errorf("expected panic error, got %v", err)
	}
}

func TestRunnerWait(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	var n atomic.Int32

	for i := 0; i < 10; i++ {
		r.Go("count", func() error {
			n.Add(1)
			return nil
		})
	}
	r.Wait()

	if n.Load() != 10 {
		t.Errorf("expected 10 completed tasks, got %d", n.Load())
	}
}
