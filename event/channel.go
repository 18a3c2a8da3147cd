package event

import "sync"

// ReaderID is a cursor into a Channel. Every consumer owns one, so reading
// never consumes events on behalf of another consumer.
type ReaderID struct {
	next uint64
}

// Source is anything a ReaderID can poll.
type Source[T any] interface {
	Register() *ReaderID
	Read(r *ReaderID) []T
}

// Channel is an append-only event log with any number of independent
// readers. Writes and reads never block on each other beyond the mutex.
type Channel[T any] struct {
	mu      sync.Mutex
	events  []T
	base    uint64 // sequence number of events[0]
	readers map[*ReaderID]struct{}
}

func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{
		readers: make(map[*ReaderID]struct{}),
	}
}

// Register returns a reader that observes events written from now on.
func (c *Channel[T]) Register() *ReaderID {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &ReaderID{next: c.base + uint64(len(c.events))}
	c.readers[r] = struct{}{}
	return r
}

func (c *Channel[T]) Unregister(r *ReaderID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.readers, r)
	c.compact()
}

// Write appends events. With no registered reader they are dropped.
func (c *Channel[T]) Write(events ...T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readers) == 0 {
		c.base += uint64(len(c.events) + len(events))
		c.events = c.events[:0]
		return
	}
	c.events = append(c.events, events...)
}

// Read returns every event written since r last read. It never blocks.
func (c *Channel[T]) Read(r *ReaderID) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.readers[r]; !ok {
		return nil
	}
	end := c.base + uint64(len(c.events))
	if r.next >= end {
		return nil
	}
	start := r.next - c.base
	out := make([]T, len(c.events)-int(start))
	copy(out, c.events[start:])
	r.next = end
	c.compact()
	return out
}

// Len reports how many events are retained for lagging readers.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// compact drops the prefix every reader has already seen.
func (c *Channel[T]) compact() {
	if len(c.readers) == 0 {
		c.base += uint64(len(c.events))
		c.events = c.events[:0]
		return
	}
	low := c.base + uint64(len(c.events))
	for r := range c.readers {
		if r.next < low {
			low = r.next
		}
	}
	drop := int(low - c.base)
	if drop == 0 {
		return
	}
	var zero T
	for i := 0; i < drop; i++ {
		c.events[i] = zero
	}
	c.events = c.events[drop:]
	c.base = low
}
