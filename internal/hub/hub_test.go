package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/relayboard/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_PublishFansOut(t *testing.T) {
	h := New(8, testLogger())
	a := h.Subscribe("sse")
	b := h.Subscribe("websocket")
	c := h.Subscribe("sse")

	ev, err := NewEvent(NewCoordinate, map[string]float64{"x": 1})
	require.NoError(t, err)
	h.Publish(ev)

	for _, sub := range []*Subscription{a, b, c} {
		got := receive(t, sub)
		assert.Equal(t, NewCoordinate, got.Name)
		assert.JSONEq(t, `{"x":1}`, string(got.Data))
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	h := New(8, testLogger())
	sub := h.Subscribe("sse")

	h.Publish(Signal(CoordinatesCleared))
	h.Publish(Signal(ImagesCleared))

	assert.Equal(t, CoordinatesCleared, receive(t, sub).Name)
	assert.Equal(t, ImagesCleared, receive(t, sub).Name)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := New(8, testLogger())
	sub := h.Subscribe("sse")
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.Len())

	_, ok := <-sub.Events()
	assert.False(t, ok, "channel should be closed")

	// second call is a no-op
	assert.NotPanics(t, func() { h.Unsubscribe(sub) })
	assert.NotPanics(t, func() { h.Unsubscribe(nil) })
}

func TestHub_UnsubscribedReceivesNothing(t *testing.T) {
	h := New(8, testLogger())
	gone := h.Subscribe("sse")
	live := h.Subscribe("sse")
	h.Unsubscribe(gone)

	h.Publish(Signal(ImagesCleared))

	assert.Equal(t, ImagesCleared, receive(t, live).Name)
	_, ok := <-gone.Events()
	assert.False(t, ok)
}

func TestHub_SlowSubscriberEvicted(t *testing.T) {
	h := New(2, testLogger())
	slow := h.Subscribe("websocket")
	fast := h.Subscribe("sse")

	before := testutil.ToFloat64(metrics.SubscribersEvicted)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			h.Publish(Signal(CoordinatesCleared))
			// drain the fast subscriber so only the idle one overflows
			<-fast.Events()
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on slow subscriber")
	}

	assert.Equal(t, 1, h.Len(), "only the fast subscriber should remain")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SubscribersEvicted))

	// the evicted channel keeps its buffered events and is then closed
	buffered := 0
	for range slow.Events() {
		buffered++
	}
	assert.Equal(t, 2, buffered)
}

func TestHub_Close(t *testing.T) {
	h := New(4, testLogger())
	a := h.Subscribe("sse")
	b := h.Subscribe("websocket")

	h.Close()
	h.Close()

	for _, sub := range []*Subscription{a, b} {
		_, ok := <-sub.Events()
		assert.False(t, ok)
	}
	assert.Equal(t, 0, h.Len())

	late := h.Subscribe("sse")
	_, ok := <-late.Events()
	assert.False(t, ok, "subscriptions after Close are born closed")

	assert.NotPanics(t, func() { h.Publish(Signal(ImagesCleared)) })
}

func TestHub_DefaultBufferSize(t *testing.T) {
	h := New(0, nil)
	sub := h.Subscribe("sse")
	assert.Equal(t, DefaultBufferSize, cap(sub.events))
	assert.NotEqual(t, sub.ID, h.Subscribe("sse").ID)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := New(16, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(Signal(ImagesCleared))
			}
		}()
		go func() {
			defer wg.Done()
			sub := h.Subscribe("sse")
			time.Sleep(5 * time.Millisecond)
			h.Unsubscribe(sub)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}

func TestEvent_Envelope(t *testing.T) {
	ev, err := NewEvent(NewImage, map[string]string{"url": "a.png"})
	require.NoError(t, err)

	data, err := json.Marshal(ev.Envelope())
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"new-image","data":{"url":"a.png"}}`, string(data))

	data, err = json.Marshal(Signal(ImagesCleared).Envelope())
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"images-cleared"}`, string(data))
}

func TestNewEvent_EncodeError(t *testing.T) {
	_, err := NewEvent(NewImage, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}
