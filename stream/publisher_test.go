package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/stream"
)

func TestSequenceStartsAtOneAndIncrements(t *testing.T) {
	p := stream.NewPublisher("test", 8)

	for i := 1; i <= 5; i++ {
		seq := p.Publish(int64(i*10), uint64(i), uint64(i*512), i, nil)
		assert.Equal(t, uint64(i), seq)
	}

	for i := 1; i <= 5; i++ {
		ev, ok := p.Next()
		require.True(t, ok)
		assert.Equal(t, uint64(i), ev.Seq)
		assert.Zero(t, ev.DroppedSinceLast)
	}

	_, ok := p.Next()
	assert.False(t, ok)
}

func TestTimestampsNeverRegress(t *testing.T) {
	p := stream.NewPublisher("test", 8)
	p.Publish(100, 1, 0, nil, nil)
	p.Publish(50, 2, 0, nil, nil) // wall clock stepped back

	ev1, _ := p.Next()
	ev2, _ := p.Next()
	assert.Equal(t, int64(100), ev1.TimestampUs)
	assert.Equal(t, int64(100), ev2.TimestampUs)
}

func TestDropOldestOnOverflow(t *testing.T) {
	p := stream.NewPublisher("test", 4)

	for i := 1; i <= 7; i++ {
		p.Publish(int64(i), uint64(i), 0, i, nil)
	}

	st := p.Stats()
	assert.Equal(t, uint64(3), st.DroppedEvents)
	assert.Equal(t, uint64(3), st.OverflowEventsTotal)
	assert.Equal(t, 4, st.Depth)
	assert.Equal(t, 4, st.HighWatermarkDepth)

	// the oldest surviving event still has its original sequence number,
	// and the delivery discloses the gap
	ev, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(4), ev.Seq)
	assert.Equal(t, uint64(3), ev.DroppedSinceLast)

	ev, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(5), ev.Seq)
	assert.Zero(t, ev.DroppedSinceLast)
}

func TestThrottleTransitions(t *testing.T) {
	p := stream.NewPublisher("test", 8)

	for i := 0; i < 6; i++ { // 6 >= 8*3/4
		p.Publish(int64(i), 0, 0, nil, nil)
	}
	assert.True(t, p.ThrottleActive())
	assert.Equal(t, uint64(1), p.Stats().ThrottleTransitionsTotal)

	// draining to 1/4 releases the throttle exactly once
	for i := 0; i < 4; i++ {
		p.Next()
	}
	assert.False(t, p.ThrottleActive())
	assert.Equal(t, uint64(2), p.Stats().ThrottleTransitionsTotal)
}

func TestCloseStopsPublishing(t *testing.T) {
	p := stream.NewPublisher("test", 4)
	p.Publish(1, 0, 0, nil, nil)
	p.Close()
	assert.Zero(t, p.Publish(2, 0, 0, nil, nil))

	// queued events remain drainable
	_, ok := p.Next()
	assert.True(t, ok)
}

func TestDeliveryDisclosure(t *testing.T) {
	p := stream.NewPublisher("test", 2)
	for i := 0; i < 4; i++ {
		p.Publish(int64(i), 0, 0, nil, nil)
	}

	ev, ok := p.Next()
	require.True(t, ok)
	d := stream.DeliveryFor(p, ev, 0)
	assert.True(t, d.Degraded)
	assert.Equal(t, stream.DegradeQueueOverflow, d.Reason)
	assert.Equal(t, uint64(2), d.DroppedEventsSinceLast)
}
