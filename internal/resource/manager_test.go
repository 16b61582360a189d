// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingOpener struct {
	calls   atomic.Int32
	release chan struct{}
}

func (o *blockingOpener) OpenMob(name string) (*MobFile, error) {
	o.calls.Add(1)
	<-o.release
	return &MobFile{Name: name}, nil
}

func (o *blockingOpener) OpenMpr(name string) (*MprFile, error) {
	return nil, errors.New("no maps")
}

func (o *blockingOpener) OpenTexture(name string) (*Texture, error) {
	return NewTexture(name, 1, 1), nil
}

func TestManagerCollapsesConcurrentOpens(t *testing.T) {
	o := &blockingOpener{release: make(chan struct{})}
	m := NewManager(o)

	const callers = 8
	results := make([]*MobFile, callers)
	var started, wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		started.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			mob, err := m.OpenMob("zone1")
			assert.NoError(t, err)
			results[i] = mob
		}(i)
	}
	started.Wait()
	close(o.release)
	wg.Wait()

	assert.LessOrEqual(t, o.calls.Load(), int32(callers))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "zone1", r.Name)
	}
}

func TestManagerPropagatesErrors(t *testing.T) {
	m := NewManager(&blockingOpener{release: make(chan struct{})})
	_, err := m.OpenMpr("zone1")
	assert.EqualError(t, err, "no maps")

	tex, err := m.OpenTexture("t")
	require.NoError(t, err)
	assert.Equal(t, "t", tex.Name)
}
