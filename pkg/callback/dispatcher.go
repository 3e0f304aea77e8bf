// Package callback provides the single-method indirection a facade uses to
// control which thread every session continuation and event runs on (for
// example, marshaling them onto a host UI thread), per spec.md §4.I.
package callback

// Dispatcher wraps fn for later invocation and returns the wrapped form.
// The session calls the result once, immediately, but Dispatcher itself
// decides how fn actually runs (inline, queued onto another thread, etc.).
type Dispatcher func(fn func()) func()

// Identity is the default Dispatcher: it returns fn unchanged, so the
// session runs every continuation on whichever goroutine produced it.
func Identity(fn func()) func() {
	return fn
}
