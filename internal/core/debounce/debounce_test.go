package debounce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerSettled(t *testing.T) {
	d := New(0)
	assert.Equal(t, DefaultDelay, d.Delay())

	first := d.Bump()
	second := d.Bump()
	assert.False(t, d.Settled(first))
	assert.True(t, d.Settled(second))
}

func TestDebouncerWait(t *testing.T) {
	d := New(10 * time.Millisecond)

	ticket := d.Bump()
	assert.True(t, d.Wait(context.Background(), ticket))

	stale := d.Bump()
	d.Bump()
	assert.False(t, d.Wait(context.Background(), stale))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, d.Wait(ctx, d.Bump()))
}

func TestDebouncerStop(t *testing.T) {
	d := New(10 * time.Millisecond)
	ticket := d.Bump()
	d.Stop()
	assert.False(t, d.Settled(ticket))
	assert.False(t, d.Wait(context.Background(), ticket))
}

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.IsLatest(0))

	first := tr.Next()
	assert.True(t, tr.IsLatest(first))

	second := tr.Next()
	assert.False(t, tr.IsLatest(first))
	assert.True(t, tr.IsLatest(second))

	tr.Invalidate()
	assert.False(t, tr.IsLatest(second))
}
