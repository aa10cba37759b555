package queue

import (
	"context"
	"encoding/json"
	"peek/backend/internal/notify"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages and then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	close(r.drained)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type recordingFanouter struct {
	actions []notify.Action
}

func (f *recordingFanouter) Fanout(_ context.Context, a notify.Action) (*notify.Result, error) {
	f.actions = append(f.actions, a)
	return &notify.Result{Success: true}, nil
}

func TestProducer_Dispatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)

	a := notify.Action{ActionType: notify.ActionNewPost, Actor: notify.Actor{ID: 42}, Post: &notify.PostRef{ID: 7, OwnerID: 42}}
	require.NoError(t, p.Dispatch(context.Background(), a))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))

	var got notify.Action
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, a, got)

	err := p.Dispatch(context.Background(), notify.Action{ActionType: notify.ActionLike, Actor: notify.Actor{ID: 1}})
	assert.ErrorIs(t, err, notify.ErrInvalidAction)
	assert.Len(t, w.msgs, 1)
}

func TestConsumer_Run(t *testing.T) {
	a := notify.Action{ActionType: notify.ActionNewBestieRequest, Actor: notify.Actor{ID: 1}, TargetUser: &notify.UserRef{ID: 2}}
	value, err := json.Marshal(a)
	require.NoError(t, err)

	r := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Value: value},
			{Offset: 2, Value: []byte("not json")},
		},
		drained: make(chan struct{}),
	}
	f := &recordingFanouter{}
	c := NewConsumerWithReader(r, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, f) }()

	<-r.drained
	cancel()
	require.NoError(t, <-done)

	require.Len(t, f.actions, 1)
	assert.Equal(t, a, f.actions[0])
	assert.Equal(t, []int64{1, 2}, r.committed)
}
