package services

import (
	"context"
	"sync"
)

// convSlots hands out one exclusive slot per conversation id. Entries are
// dropped once nobody holds or waits for them.
type convSlots struct {
	mu    sync.Mutex
	slots map[uint]*convSlot
}

type convSlot struct {
	sem  chan struct{}
	refs int
}

func newConvSlots() *convSlots {
	return &convSlots{slots: make(map[uint]*convSlot)}
}

func (c *convSlots) acquire(ctx context.Context, id uint) (release func(), err error) {
	c.mu.Lock()
	s := c.slots[id]
	if s == nil {
		s = &convSlot{sem: make(chan struct{}, 1)}
		c.slots[id] = s
	}
	s.refs++
	c.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		c.unref(id, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			c.unref(id, s)
		})
	}, nil
}

func (c *convSlots) unref(id uint, s *convSlot) {
	c.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(c.slots, id)
	}
	c.mu.Unlock()
}

func (c *convSlots) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
