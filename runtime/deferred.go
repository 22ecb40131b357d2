//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package runtime

// Deferred is a single-shot future. It completes exactly once,
// either with a value or with an error, and runs its callbacks
// synchronously in registration order. Callbacks registered after
// completion run immediately. Deferred is not safe for concurrent
// use; all deferreds of a runtime belong to its event loop.
type Deferred[T any] struct {
	done      bool
	value     T
	err       error
	callbacks []func(T, error)
}

// Resolved returns a deferred completed with the value v.
func Resolved[T any](v T) *Deferred[T] {
	return &Deferred[T]{
		done:  true,
		value: v,
	}
}

// Done tests if the deferred is completed.
func (d *Deferred[T]) Done() bool {
	return d.done
}

// Result returns the deferred's value and error. The result is
// meaningful only after the deferred is completed.
func (d *Deferred[T]) Result() (T, error) {
	return d.value, d.err
}

// Resolve completes the deferred with the value v.
func (d *Deferred[T]) Resolve(v T) {
	d.complete(v, nil)
}

// Fail completes the deferred with the error err.
func (d *Deferred[T]) Fail(err error) {
	var zero T
	d.complete(zero, err)
}

func (d *Deferred[T]) complete(v T, err error) {
	if d.done {
		panic("deferred completed twice")
	}
	d.done = true
	d.value = v
	d.err = err

	callbacks := d.callbacks
	d.callbacks = nil
	for _, cb := range callbacks {
		cb(v, err)
	}
}

// OnComplete registers a callback that is called with the
// deferred's result.
func (d *Deferred[T]) OnComplete(cb func(T, error)) {
	if d.done {
		cb(d.value, d.err)
		return
	}
	d.callbacks = append(d.callbacks, cb)
}

// Then registers a callback for successful completion.
func (d *Deferred[T]) Then(cb func(T)) {
	d.OnComplete(func(v T, err error) {
		if err == nil {
			cb(v)
		}
	})
}

// Catch registers a callback for failed completion.
func (d *Deferred[T]) Catch(cb func(error)) {
	d.OnComplete(func(v T, err error) {
		if err != nil {
			cb(err)
		}
	})
}
