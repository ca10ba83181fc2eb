// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

// ChannelReporter decouples reporters from a slow listener with a buffered channel.
// Report blocks while the buffer is full, so events are never dropped; it gives
// up only when the parent context is done or the reporter is closed.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Reporter = (*ChannelReporter)(nil)

// NewChannelReporter creates a ChannelReporter with the given buffer size.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	return &ChannelReporter{
		ch:  make(chan Event, bufferSize),
		ctx: ctx,
	}
}

// Report implements Reporter.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	case <-cr.ctx.Done():
	}
}

// Listen forwards events to l on a new goroutine until Close.
func (cr *ChannelReporter) Listen(l Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for e := range cr.ch {
			l.OnEvent(e)
		}
	}()
}

// Close stops accepting events and waits for the listener to drain the buffer.
// It is safe to call more than once.
func (cr *ChannelReporter) Close() {
	cr.mu.Lock()
	if !cr.closed {
		cr.closed = true
		close(cr.ch)
	}
	cr.mu.Unlock()

	cr.wg.Wait()
}
