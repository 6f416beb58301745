package server

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSetFires(t *testing.T) {
	clock := quartz.NewMock(t)
	ts := newTimerSet(clock, nil)

	fired := make(chan string, 4)
	ts.Schedule("deal", time.Second, func() { fired <- "deal" })

	clock.Advance(time.Second).MustWait(context.Background())
	assert.Equal(t, "deal", <-fired)
}

func TestTimerSetReplacesSameKey(t *testing.T) {
	clock := quartz.NewMock(t)
	ts := newTimerSet(clock, nil)

	fired := make(chan string, 4)
	ts.Schedule("deal", time.Second, func() { fired <- "first" })
	ts.Schedule("deal", 2*time.Second, func() { fired <- "second" })

	clock.Advance(2 * time.Second).MustWait(context.Background())
	assert.Equal(t, "second", <-fired)
	select {
	case extra := <-fired:
		t.Fatalf("replaced timer fired: %s", extra)
	default:
	}
}

func TestTimerSetCancel(t *testing.T) {
	clock := quartz.NewMock(t)
	ts := newTimerSet(clock, nil)

	fired := make(chan string, 4)
	ts.Schedule("refill", time.Second, func() { fired <- "refill" })
	ts.Cancel("refill")

	clock.Advance(time.Second).MustWait(context.Background())
	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	default:
	}
}

func TestTimerSetCancelAll(t *testing.T) {
	clock := quartz.NewMock(t)
	ts := newTimerSet(clock, nil)

	fired := make(chan string, 4)
	ts.Schedule("a", time.Second, func() { fired <- "a" })
	ts.Schedule("b", time.Second, func() { fired <- "b" })
	ts.CancelAll()

	clock.Advance(time.Second).MustWait(context.Background())
	select {
	case key := <-fired:
		t.Fatalf("cancelled timer fired: %s", key)
	default:
	}
}

func TestTimerSetWrapRunsCallback(t *testing.T) {
	clock := quartz.NewMock(t)
	wrapped := make(chan struct{}, 1)
	ts := newTimerSet(clock, func(fn func()) {
		wrapped <- struct{}{}
		fn()
	})

	fired := make(chan struct{}, 1)
	ts.Schedule("deal", time.Second, func() { fired <- struct{}{} })

	clock.Advance(time.Second).MustWait(context.Background())
	require.Len(t, wrapped, 1)
	require.Len(t, fired, 1)
}
