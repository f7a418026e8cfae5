package quote_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/prism-swap/orchestrator/quote"
)

func TestRefresherDebouncesInput(t *testing.T) {
	var calls atomic.Int32
	r := quote.NewRefresher(func(context.Context) { calls.Add(1) }, quote.RefresherConfig{
		Debounce: 20 * time.Millisecond,
		Interval: time.Hour,
	})
	r.Start(context.Background())
	defer r.Stop()

	// a burst of keystrokes collapses into one quote
	for i := 0; i < 5; i++ {
		r.UserInput()
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefresherAutoSuppressedWhileSettling(t *testing.T) {
	var calls atomic.Int32
	r := quote.NewRefresher(func(context.Context) { calls.Add(1) }, quote.RefresherConfig{
		Debounce: time.Hour,
		Interval: 15 * time.Millisecond,
	})
	r.Start(context.Background())
	defer r.Stop()

	r.UserInput() // opens the interaction window (debounce never fires here)
	r.SetSettling(true)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	r.SetSettling(false)
	time.Sleep(80 * time.Millisecond)
	assert.True(t, calls.Load() >= 1)
}

func TestRefresherAutoRequiresRecentInteraction(t *testing.T) {
	var calls atomic.Int32
	r := quote.NewRefresher(func(context.Context) { calls.Add(1) }, quote.RefresherConfig{
		Debounce:          time.Hour,
		Interval:          15 * time.Millisecond,
		InteractionWindow: time.Hour,
	})
	r.Start(context.Background())
	defer r.Stop()

	// no interaction yet: the ticker must stay quiet
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
