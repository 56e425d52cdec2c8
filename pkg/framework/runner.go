package framework

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// PartError is the error a named part of a Runner stopped with.
type PartError struct {
	Name string
	Err  error
}

// Error implements error.
func (e *PartError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PartError) Unwrap() error {
	return e.Err
}

// ErrForcedExit is returned by Wait when a second stop signal arrives
// before all parts stopped.
var ErrForcedExit = errors.New("forced exit")

// Runner runs the parts of a process and collects their errors.
// A part stopping because its context was canceled is not an error.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel context.CancelFunc
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner derived from ctx.
// The parts are stopped by canceling ctx or calling Stop.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		errCh:   make(chan error, 1),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals stops on SIGINT or SIGTERM, and forces Wait to return
// on the second one.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.Stop()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Stop cancels the context of all parts.
func (r *Runner) Stop() {
	r.cancel()
}

func (r *Runner) nameOf(runner Runnable) string {
	if named, ok := runner.(Named); ok {
		return named.Name()
	}
	return "#" + strconv.Itoa(len(r.Runners))
}

// Go starts parts with the runner context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	return r.GoWith(r.Context, runners...)
}

// GoWith starts parts with a specified context.
func (r *Runner) GoWith(ctx context.Context, runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := r.nameOf(runner)
		r.Runners = append(r.Runners, runner)
		glog.V(4).Infof("start %s", name)
		go func(runner Runnable, name string) {
			err := runner.Run(ctx)
			glog.V(4).Infof("%s stopped: %v", name, err)
			if err != nil && !errors.Is(err, context.Canceled) {
				err = &PartError{Name: name, Err: err}
			}
			r.errCh <- err
		}(runner, name)
	}
	return r
}

// GoUntil starts parts whose return, with or without error, stops all
// others. The bridge runs its forwarder this way.
func (r *Runner) GoUntil(runners ...Runnable) *Runner {
	for _, runner := range runners {
		runner := runner
		r.Go(NamedRun(r.nameOf(runner), RunnableFunc(func(ctx context.Context) error {
			defer r.Stop()
			return runner.Run(ctx)
		})))
	}
	return r
}

// Wait waits for all parts and aggregates their errors.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for range r.Runners {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}
