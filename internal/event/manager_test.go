// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const render ConsumerID = "render"

func newTestManager() *Manager {
	return NewManagerWithLogger(zerolog.Nop())
}

func TestManagerHasPendingEventsUnknownConsumer(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	assert.False(t, m.HasPendingEvents("nobody"))
	_, ok := m.Queue("nobody")
	assert.False(t, ok, "querying must not create a queue")
}

func TestManagerPostCreatesQueueLazily(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	var ran bool
	require.NoError(t, m.PostCall(render, func() { ran = true }))
	assert.True(t, m.HasPendingEvents(render))

	require.NoError(t, m.ProcessEventsTimeout(render, 40*time.Millisecond, AllEvents))
	assert.True(t, ran)
	assert.False(t, m.HasPendingEvents(render))
}

func TestManagerCreateQueueIdempotentUnderRace(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	const workers = 16
	queues := make([]*Queue, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q, err := m.CreateQueue(render)
			assert.NoError(t, err)
			queues[i] = q
		}(i)
	}
	wg.Wait()

	for _, q := range queues[1:] {
		assert.Same(t, queues[0], q)
	}
}

func TestPostRawCopiesPayload(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	var got placement
	src := placement{Model: "hut", X: 1, Y: 2}
	require.NoError(t, PostRaw(m, render, func(p *placement) { got = *p }, src))
	src.Model = "changed"

	require.NoError(t, m.ProcessEvents(render, AllEvents))
	assert.Equal(t, placement{Model: "hut", X: 1, Y: 2}, got)
}

func TestPostPtrTransfersPointer(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	obj := &placement{Model: "tower"}
	var got *placement
	require.NoError(t, PostPtr(m, render, func(p *placement) { got = p }, obj))

	require.NoError(t, m.ProcessEvents(render, AllEvents))
	assert.Same(t, obj, got)
}

func TestManagerFIFOPerProducer(t *testing.T) {
	m := newTestManager()
	defer m.Close()

	var order []int
	for i := 0; i < 5; i++ {
		require.NoError(t, PostRaw(m, render, func(p *int) { order = append(order, *p) }, i))
	}
	require.NoError(t, m.ProcessEvents(render, AllEvents))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestManagerCloseDiscardsPending(t *testing.T) {
	m := newTestManager()

	var ran bool
	require.NoError(t, m.PostCall(render, func() { ran = true }))
	m.Close()
	m.Close()

	assert.False(t, ran)
	assert.False(t, m.HasPendingEvents(render))
	assert.ErrorIs(t, m.PostCall(render, func() { ran = true }), ErrManagerClosed)
	assert.ErrorIs(t, m.ProcessEvents(render, AllEvents), ErrManagerClosed)
	_, err := m.CreateQueue(render)
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.False(t, ran)
}

func TestManagerInterruptUnknownIsNoop(t *testing.T) {
	m := newTestManager()
	defer m.Close()
	assert.NotPanics(t, func() { m.Interrupt("ghost") })
}

func TestManagerInterruptReleasesWaitingConsumer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager()
	defer m.Close()

	_, err := m.CreateQueue(render)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- m.ProcessEvents(render, WaitForMoreEvents) }()

	require.NoError(t, m.PostCall(render, func() {}))
	require.Eventually(t, func() bool { return !m.HasPendingEvents(render) },
		time.Second, 5*time.Millisecond)

	m.Interrupt(render)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer still blocked after interrupt")
	}
}

func TestManagerCloseReleasesWaitingConsumer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager()
	_, err := m.CreateQueue(render)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = m.ProcessEvents(render, WaitForMoreEvents)
		close(done)
	}()

	require.NoError(t, m.PostCall(render, func() {}))
	require.Eventually(t, func() bool { return !m.HasPendingEvents(render) },
		time.Second, 5*time.Millisecond)

	m.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer still blocked after close")
	}
	assert.ErrorIs(t, m.PostCall(render, func() {}), ErrManagerClosed)
}
