package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunnerStopsAllOnFirstExit(t *testing.T) {
	errFailed := errors.New("serial port gone")
	r := NewRunner()
	r.Go(
		NamedRun("http", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("station", RunFunc(func(ctx context.Context) error {
			return errFailed
		})),
	)
	err := r.Wait()
	require.True(t, errors.Is(err, errFailed))
	require.Equal(t, errFailed.Error(), err.Error())
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	cancel()
	err := RunWithContextCancel(ctx, func() { close(stop) }, func() error {
		<-stop
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)

	err = RunWithContextCancel(context.Background(), nil, func() error {
		return errors.New("listen failed")
	})
	require.EqualError(t, err, "listen failed")
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	first, second := errors.New("halt enable"), errors.New("close port")
	err := errs.Add(first, nil, second).Aggregate()
	require.EqualError(t, err, "Multiple errors:\nhalt enable\nclose port")
	require.True(t, errors.Is(err, second))
}
