// Package tasks runs named background jobs and hands back awaitable handles.
package tasks

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/logging"
)

// Task is the handle for one submitted job.
type Task struct {
	Name string
	done chan struct{}
	err  error
}

// Done is closed when the job has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the job returns and reports its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Runner starts jobs on their own goroutines and tracks them until they finish.
type Runner struct {
	logger zerolog.Logger
	wg     sync.WaitGroup
}

func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{logger: logging.Component(logger, "tasks")}
}

// Go runs fn in the background. A panic inside fn is recovered and returned
// as the task error so it never takes down the caller.
func (r *Runner) Go(name string, fn func() error) *Task {
	t := &Task{Name: name, done: make(chan struct{})}
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer close(t.done)
		defer func() {
			if p := recover(); p != nil {
				t.err = fmt.Errorf("task %s panicked: %v", name, p)
			}
			if t.err != nil {
				r.logger.Error().Err(t.err).Str("task", name).Msg("task failed")
			}
		}()

		r.logger.Debug().Str("task", name).Msg("task started")
		t.err = fn()
	}()

	return t
}

// Wait blocks until every submitted job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
