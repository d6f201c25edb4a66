package windfarmer

import "context"

// JobObserver receives a copy of an asynchronous job after it is submitted and after
// every status poll, terminal states included. It runs on the
// polling goroutine and must not block.
type JobObserver func(Job)

type observerKey struct{}

// WithJobObserver returns a context that reports the jobs started under it to fn.
func WithJobObserver(ctx context.Context, fn JobObserver) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

func notify(ctx context.Context, job *Job) {
	if fn, ok := ctx.Value(observerKey{}).(JobObserver); ok && fn != nil {
		fn(*job)
	}
}
