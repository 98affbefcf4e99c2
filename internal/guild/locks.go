package guild

import "context"

// ChannelLockRegistry serializes message appends per channel (spec.md §4.6's
// concurrency hazard: two concurrent SendMessage calls on the same channel
// must not race on "is the current block full"). Adapted from
// internal/server's Hub: a single goroutine owns the lock state, and every
// other goroutine talks to it through channels instead of a shared mutex
// map.
type ChannelLockRegistry struct {
	acquire chan acquireRequest
	cancel  chan acquireRequest
	release chan string
	done    chan struct{}

	locked  map[string]bool
	waiters map[string][]chan struct{}
}

type acquireRequest struct {
	key     string
	granted chan struct{}
}

// NewChannelLockRegistry builds a registry. Run must be launched as a
// goroutine before Lock is called.
func NewChannelLockRegistry() *ChannelLockRegistry {
	return &ChannelLockRegistry{
		acquire: make(chan acquireRequest),
		cancel:  make(chan acquireRequest),
		release: make(chan string),
		done:    make(chan struct{}),
		locked:  make(map[string]bool),
		waiters: make(map[string][]chan struct{}),
	}
}

// Run processes lock requests. It must be launched as a goroutine.
func (r *ChannelLockRegistry) Run() {
	for {
		select {
		case req := <-r.acquire:
			if !r.locked[req.key] {
				r.locked[req.key] = true
				close(req.granted)
				continue
			}
			r.waiters[req.key] = append(r.waiters[req.key], req.granted)

		case key := <-r.release:
			r.releaseKey(key)

		case req := <-r.cancel:
			r.cancelRequest(req)

		case <-r.done:
			return
		}
	}
}

// releaseKey hands key's lock to the next waiter, or marks it free if none
// are queued.
func (r *ChannelLockRegistry) releaseKey(key string) {
	waiting := r.waiters[key]
	if len(waiting) == 0 {
		delete(r.locked, key)
		return
	}
	next := waiting[0]
	r.waiters[key] = waiting[1:]
	close(next)
}

// cancelRequest handles a Lock call whose ctx was cancelled. If req was
// still queued, it is removed without ever being granted. If req had
// already been granted by the time the cancellation reached Run — a race
// between the grant and the caller's ctx firing — the caller will never
// return to call unlock, so the lock is released here on its behalf
// instead of being leaked forever (the bug this type previously had:
// locked[key] would stay true with no live holder able to free it).
func (r *ChannelLockRegistry) cancelRequest(req acquireRequest) {
	select {
	case <-req.granted:
		r.releaseKey(req.key)
	default:
		waiting := r.waiters[req.key]
		for i, w := range waiting {
			if w == req.granted {
				r.waiters[req.key] = append(waiting[:i], waiting[i+1:]...)
				return
			}
		}
	}
}

// Stop shuts the registry down.
func (r *ChannelLockRegistry) Stop() { close(r.done) }

// Lock blocks until key is exclusively held, returning an unlock func. If
// ctx is already cancelled, or is cancelled before the request reaches Run,
// Lock returns ctx.Err() without holding anything. If ctx is cancelled while
// queued or in the race against being granted, Lock reports that to Run via
// cancel so the lock is never left held with no one able to release it,
// and returns ctx.Err().
func (r *ChannelLockRegistry) Lock(ctx context.Context, key string) (unlock func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := acquireRequest{key: key, granted: make(chan struct{})}
	select {
	case r.acquire <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-req.granted:
		return func() { r.release <- key }, nil
	case <-ctx.Done():
		r.cancel <- req
		return nil, ctx.Err()
	}
}
