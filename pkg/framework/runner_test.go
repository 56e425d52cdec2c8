package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitCanceled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunnableFunc(waitCanceled), NamedRun("named", RunnableFunc(waitCanceled)))
	require.Len(t, r.Runners, 2)
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerAggregatesErrors(t *testing.T) {
	err1, err2 := errors.New("e1"), errors.New("e2")
	r := NewRunner().Go(
		RunnableFunc(func(context.Context) error { return err1 }),
		RunnableFunc(func(context.Context) error { return nil }),
		RunnableFunc(func(context.Context) error { return err2 }),
	)
	err := r.Wait()
	require.Error(t, err)
	agg, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Len(t, agg.Errors, 2)
	var causes []error
	for _, e := range agg.Errors {
		part, ok := e.(*PartError)
		require.True(t, ok)
		require.Equal(t, "#", part.Name[:1])
		causes = append(causes, errors.Unwrap(part))
	}
	require.ElementsMatch(t, []error{err1, err2}, causes)
}

func TestRunnerGoUntil(t *testing.T) {
	done := errors.New("done")
	r := NewRunner().
		Go(RunnableFunc(waitCanceled)).
		GoUntil(NamedRun("until", RunnableFunc(func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return done
		})))
	err := r.Wait()
	require.Error(t, err)
	require.Equal(t, "until: done", err.Error())
	require.True(t, errors.Is(err.(*AggregatedError).Errors[0], done))
}

func TestRunnerParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(RunnableFunc(waitCanceled))
	cancel()
	require.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	require.Empty(t, errs.Error())
	errs.Add(errors.New("a"), nil)
	require.Equal(t, "a", errs.Aggregate().Error())
	errs.Add(errors.New("b"))
	require.Equal(t, "2 errors: a; b", errs.Aggregate().Error())
}
