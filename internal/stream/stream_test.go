package stream

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMapAppliesFunctionToEveryValue(t *testing.T) {
	it := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, v int) (int, error) {
		return v * 2, nil
	})

	got, err := Collect(context.Background(), it)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{2, 4, 6}, got); diff != "" {
		t.Fatalf("mapped values mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorClosesSource(t *testing.T) {
	closed := false
	n := 0
	src := FromFunc(func(context.Context) (int, error) {
		n++
		return n, nil
	}, func() error {
		closed = true
		return nil
	})
	boom := errors.New("boom")
	it := Map(src, func(_ context.Context, v int) (string, error) {
		if v == 2 {
			return "", boom
		}
		return strconv.Itoa(v), nil
	})

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1", v)

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, boom)
	require.True(t, closed, "source should be closed after mapper failure")
}

func TestFinalizeRunsOnceOnExhaustion(t *testing.T) {
	calls := 0
	it := Finalize(FromSlice([]string{"a", "b"}), func() { calls++ })

	got, err := Collect(context.Background(), it)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, it.Close())
	require.Equal(t, 1, calls)
}

func TestFinalizeRunsOnceOnEarlyClose(t *testing.T) {
	calls := 0
	it := Finalize(FromSlice([]int{1, 2, 3}), func() { calls++ })

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 1, calls)
}

func TestCatchErrorReplacesErrorAndTerminates(t *testing.T) {
	boom := errors.New("boom")
	masked := errors.New("masked")
	n := 0
	src := FromFunc(func(context.Context) (int, error) {
		n++
		if n == 2 {
			return 0, boom
		}
		return n, nil
	}, nil)

	var seen error
	it := CatchError(src, func(err error) error {
		seen = err
		return masked
	})

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, masked)
	require.ErrorIs(t, seen, boom)

	_, err = it.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n, "source must not be pulled after failure")
}

func TestCatchErrorPassesContextErrors(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(cause.Error(), func(t *testing.T) {
			called := false
			it := CatchError(FromFunc(func(ctx context.Context) (int, error) {
				return 0, cause
			}, nil), func(err error) error {
				called = true
				return errors.New("masked")
			})

			_, err := it.Next(context.Background())
			require.ErrorIs(t, err, cause)
			require.False(t, called)

			_, err = it.Next(context.Background())
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestTransformersComposeInOrder(t *testing.T) {
	var log []string
	var it Iterator[int] = FromSlice([]int{1, 2})
	it = Map(it, func(_ context.Context, v int) (int, error) {
		log = append(log, "map:"+strconv.Itoa(v))
		return v + 10, nil
	})
	it = Finalize(it, func() { log = append(log, "end") })

	got, err := Collect(context.Background(), it)
	require.NoError(t, err)
	require.Equal(t, []int{11, 12}, got)
	require.Equal(t, []string{"map:1", "map:2", "end"}, log)
}

func TestFromChannel(t *testing.T) {
	ch := make(chan int, 2)
	ch <- 1
	ch <- 2
	close(ch)

	got, err := Collect(context.Background(), FromChannel(ch, nil))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, got)
}

func TestFromChannelCloseCancelsProducer(t *testing.T) {
	ch := make(chan int)
	cancelled := false
	it := FromChannel(ch, func() { cancelled = true })

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	require.True(t, cancelled)

	_, err := it.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestFromChannelRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromChannel(make(chan int), nil).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
