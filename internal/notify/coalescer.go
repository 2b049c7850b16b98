package notify

import "sync"

// Coalescer is a depth-one trigger: any number of signals raised while one
// is pending collapse into a single wake-up.
type Coalescer struct {
	ch        chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewCoalescer() *Coalescer {
	return &Coalescer{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Signal raises the trigger without blocking. It returns false when a
// signal was already pending.
func (c *Coalescer) Signal() bool {
	select {
	case c.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Wait blocks until a signal (true) or Close (false). A signal pending at
// Close is delivered first.
func (c *Coalescer) Wait() bool {
	select {
	case <-c.ch:
		return true
	default:
	}
	select {
	case <-c.ch:
		return true
	case <-c.done:
		select {
		case <-c.ch:
			return true
		default:
			return false
		}
	}
}

// Close wakes the waiter for the last time.
func (c *Coalescer) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
