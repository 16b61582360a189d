// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestThreadRunsPostedEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager()
	defer m.Close()

	th, err := StartThread(m, "sound")
	require.NoError(t, err)
	assert.Equal(t, ConsumerID("sound"), th.ID())

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, m.PostCall("sound", func() { n.Add(1) }))
	}
	require.Eventually(t, func() bool { return n.Load() == 10 }, time.Second, 5*time.Millisecond)

	th.Stop()
	th.Stop()
	select {
	case <-th.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestThreadStopFlushesPosted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager()
	defer m.Close()

	th, err := StartThread(m, "journal")
	require.NoError(t, err)

	var n atomic.Int32
	for i := 0; i < 100; i++ {
		require.NoError(t, m.PostCall("journal", func() { n.Add(1) }))
	}
	th.Stop()
	assert.Equal(t, int32(100), n.Load())
}

func TestThreadExitsOnManagerClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newTestManager()
	th, err := StartThread(m, "io")
	require.NoError(t, err)

	m.Close()
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("thread did not exit after manager close")
	}
}

func TestStartThreadAfterClose(t *testing.T) {
	m := newTestManager()
	m.Close()
	_, err := StartThread(m, "late")
	assert.ErrorIs(t, err, ErrManagerClosed)
}
