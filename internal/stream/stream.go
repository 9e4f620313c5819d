// Package stream provides pull-based result streams and the transformers the
// envelop pipelines wrap around them.
//
// An Iterator yields values until Next returns io.EOF. Streams are not
// restartable: once Next has reported io.EOF or an error, or Close has been
// called, the iterator stays finished. Close is the cancellation primitive and
// is safe to call more than once.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Iterator is a possibly infinite sequence of values.
type Iterator[T any] interface {
	// Next blocks until the next value is available. It returns io.EOF once
	// the sequence is exhausted.
	Next(ctx context.Context) (T, error)
	// Close releases the underlying source early.
	Close() error
}

type state uint8

const (
	stateOpen state = iota
	stateDone
	stateClosed
)

// FromSlice returns an iterator over a fixed list of values.
func FromSlice[T any](values []T) Iterator[T] {
	return &sliceIterator[T]{values: values}
}

type sliceIterator[T any] struct {
	mu     sync.Mutex
	values []T
	pos    int
	closed bool
}

func (it *sliceIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed || it.pos >= len(it.values) {
		return zero, io.EOF
	}
	v := it.values[it.pos]
	it.pos++
	return v, nil
}

func (it *sliceIterator[T]) Close() error {
	it.mu.Lock()
	it.closed = true
	it.mu.Unlock()
	return nil
}

// FromChannel adapts a channel. The iterator ends when ch is closed. Closing
// the iterator stops consumption and invokes cancel, if given, so the producer
// can stop sending.
func FromChannel[T any](ch <-chan T, cancel func()) Iterator[T] {
	return &chanIterator[T]{ch: ch, cancel: cancel, done: make(chan struct{})}
}

type chanIterator[T any] struct {
	ch     <-chan T
	cancel func()
	done   chan struct{}
	once   sync.Once
}

func (it *chanIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-it.done:
		return zero, io.EOF
	default:
	}
	select {
	case <-it.done:
		return zero, io.EOF
	case <-ctx.Done():
		return zero, ctx.Err()
	case v, ok := <-it.ch:
		if !ok {
			return zero, io.EOF
		}
		return v, nil
	}
}

func (it *chanIterator[T]) Close() error {
	it.once.Do(func() {
		close(it.done)
		if it.cancel != nil {
			it.cancel()
		}
	})
	return nil
}

// FromFunc builds an iterator from a next function and an optional close
// function.
func FromFunc[T any](next func(ctx context.Context) (T, error), closeFn func() error) Iterator[T] {
	return &funcIterator[T]{next: next, close: closeFn}
}

type funcIterator[T any] struct {
	next  func(ctx context.Context) (T, error)
	close func() error
}

func (it *funcIterator[T]) Next(ctx context.Context) (T, error) { return it.next(ctx) }

func (it *funcIterator[T]) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}

// Collect drains it into a slice and closes it. On error the values read so
// far are returned along with the error.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var out []T
	for {
		v, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, it.Close()
		}
		if err != nil {
			_ = it.Close()
			return out, err
		}
		out = append(out, v)
	}
}
