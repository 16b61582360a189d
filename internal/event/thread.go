// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import "sync"

// Thread is a goroutine that owns a consumer identity and runs every event
// posted to it until stopped.
type Thread struct {
	id   ConsumerID
	m    *Manager
	done chan struct{}
	stop sync.Once
}

// StartThread registers id and starts its draining goroutine.
func StartThread(m *Manager, id ConsumerID) (*Thread, error) {
	if _, err := m.CreateQueue(id); err != nil {
		return nil, err
	}
	t := &Thread{id: id, m: m, done: make(chan struct{})}
	go t.run()
	return t, nil
}

func (t *Thread) run() {
	defer close(t.done)
	if err := t.m.ProcessEvents(t.id, WaitForMoreEvents); err != nil {
		return
	}
	// flush what was posted between the last pass and the interrupt
	_ = t.m.ProcessEvents(t.id, AllEvents)
}

// ID returns the consumer identity served by the thread.
func (t *Thread) ID() ConsumerID {
	return t.id
}

// Stop interrupts the thread and waits for it to exit. Events posted before
// Stop is called are processed before it returns.
func (t *Thread) Stop() {
	t.stop.Do(func() {
		t.m.Interrupt(t.id)
		<-t.done
	})
}

// Done is closed once the thread has exited.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}
