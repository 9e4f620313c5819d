package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Map returns an iterator that applies fn to every value pulled from src.
// When fn fails the source is closed (best effort) and the error is returned
// from Next. Close is forwarded to src.
func Map[T, U any](src Iterator[T], fn func(ctx context.Context, v T) (U, error)) Iterator[U] {
	return &mapIterator[T, U]{src: src, fn: fn}
}

type mapIterator[T, U any] struct {
	src Iterator[T]
	fn  func(context.Context, T) (U, error)
}

func (it *mapIterator[T, U]) Next(ctx context.Context) (U, error) {
	var zero U
	v, err := it.src.Next(ctx)
	if err != nil {
		return zero, err
	}
	out, err := it.fn(ctx, v)
	if err != nil {
		_ = it.src.Close()
		return zero, err
	}
	return out, nil
}

func (it *mapIterator[T, U]) Close() error { return it.src.Close() }

// Finalize returns an iterator that calls onFinal exactly once, either when
// src reports io.EOF or when the consumer closes the stream early. Errors
// other than io.EOF do not trigger onFinal.
func Finalize[T any](src Iterator[T], onFinal func()) Iterator[T] {
	return &finalizeIterator[T]{src: src, onFinal: onFinal}
}

type finalizeIterator[T any] struct {
	src     Iterator[T]
	onFinal func()

	mu    sync.Mutex
	state state
	once  sync.Once
}

func (it *finalizeIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	it.mu.Lock()
	st := it.state
	it.mu.Unlock()
	if st != stateOpen {
		return zero, io.EOF
	}

	v, err := it.src.Next(ctx)
	if errors.Is(err, io.EOF) {
		it.mu.Lock()
		if it.state == stateOpen {
			it.state = stateDone
		}
		it.mu.Unlock()
		it.finish()
		return zero, io.EOF
	}
	return v, err
}

func (it *finalizeIterator[T]) Close() error {
	it.mu.Lock()
	it.state = stateClosed
	it.mu.Unlock()
	err := it.src.Close()
	it.finish()
	return err
}

func (it *finalizeIterator[T]) finish() {
	it.once.Do(func() {
		if it.onFinal != nil {
			it.onFinal()
		}
	})
}

// CatchError returns an iterator that hands any non-EOF error from src to
// onError. The error onError returns is reported from Next and the stream
// terminates: further calls to Next return io.EOF. Context cancellation and
// deadline errors terminate the stream without reaching onError.
func CatchError[T any](src Iterator[T], onError func(err error) error) Iterator[T] {
	return &catchIterator[T]{src: src, onError: onError}
}

type catchIterator[T any] struct {
	src     Iterator[T]
	onError func(error) error

	mu     sync.Mutex
	failed bool
}

func (it *catchIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	it.mu.Lock()
	failed := it.failed
	it.mu.Unlock()
	if failed {
		return zero, io.EOF
	}

	v, err := it.src.Next(ctx)
	if err == nil || errors.Is(err, io.EOF) {
		return v, err
	}

	it.mu.Lock()
	it.failed = true
	it.mu.Unlock()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return zero, err
	}
	if it.onError != nil {
		err = it.onError(err)
	}
	if err == nil {
		return zero, io.EOF
	}
	return zero, err
}

func (it *catchIterator[T]) Close() error { return it.src.Close() }
