package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"GapScout/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	msgType string
	payload []interface{}
	err     error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.msgType = msgType
	f.payload = append(f.payload, payload)
	return nil
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &recordSink{}
	m := &countMetrics{}
	d := NewAlertDispatcher(sink, m, nil, WithSpacing(0), WithBuffer(8))
	d.Start()

	for _, s := range []string{"KLTO", "ABC", "XYZ"} {
		require.NoError(t, d.Dispatch(context.Background(), s, "alert "+s))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, []string{"alert KLTO", "alert ABC", "alert XYZ"}, sink.texts)
	assert.Equal(t, 3, m.alerts)
	assert.ErrorIs(t, d.Dispatch(context.Background(), "LATE", "x"), ErrDispatcherClosed)
	assert.NoError(t, d.Close(ctx))
}

func TestDispatcherSpacing(t *testing.T) {
	sink := &recordSink{}
	d := NewAlertDispatcher(sink, nil, nil, WithSpacing(40*time.Millisecond))
	d.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(context.Background(), "KLTO", "x"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	require.Len(t, sink.at, 3)
	for i := 1; i < 3; i++ {
		assert.GreaterOrEqual(t, sink.at[i].Sub(sink.at[i-1]), 40*time.Millisecond)
	}
}

func TestDispatcherSinkFailureCounted(t *testing.T) {
	m := &countMetrics{}
	d := NewAlertDispatcher(&recordSink{fail: true}, m, nil, WithSpacing(0))
	d.Start()
	require.NoError(t, d.Dispatch(context.Background(), "KLTO", "x"))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 0, m.alerts)
	assert.Equal(t, 1, m.errors["alert_send"])
}

func TestDispatcherQueueMode(t *testing.T) {
	q := &fakeEnqueuer{}
	sink := &recordSink{}
	d := NewAlertDispatcher(sink, nil, nil, WithQueue(q))
	d.Start()

	require.NoError(t, d.Dispatch(context.Background(), "KLTO", "hello"))
	assert.Equal(t, AlertJobType, q.msgType)
	assert.Equal(t, []interface{}{AlertMessage{Symbol: "KLTO", Text: "hello"}}, q.payload)
	assert.Equal(t, 0, sink.count())

	q.err = errors.New("redis down")
	assert.Error(t, d.Dispatch(context.Background(), "KLTO", "again"))
}

func TestSendAlertJob(t *testing.T) {
	sink := &recordSink{}
	m := &countMetrics{}
	job := NewSendAlertJob(sink, m, nil)
	assert.Equal(t, AlertJobType, job.Type())

	err := job.Handle(context.Background(), json.RawMessage(`{"symbol":"KLTO","text":"queued"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"queued"}, sink.texts)
	assert.Equal(t, 1, m.alerts)

	// malformed or empty alerts are never retried
	assert.ErrorIs(t, job.Handle(context.Background(), json.RawMessage(`42`)), queue.ErrPermanent)
	assert.ErrorIs(t, job.Handle(context.Background(), json.RawMessage(`{"symbol":"KLTO"}`)), queue.ErrPermanent)

	failing := NewSendAlertJob(&recordSink{fail: true}, nil, nil)
	err = failing.Handle(context.Background(), json.RawMessage(`{"symbol":"KLTO","text":"x"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, queue.ErrPermanent)
}
