package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	err    error
	calls  int
	closed bool
}

func (f *flakyPublisher) Publish(context.Context, string, []byte) error {
	f.calls++
	return f.err
}

func (f *flakyPublisher) Close() error {
	f.closed = true
	return nil
}

func TestBreakerPublisherOpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyPublisher{err: errors.New("connection reset")}
	publisher := NewBreakerPublisher(next, Config{BreakerFailures: 2, BreakerTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		err := publisher.Publish(context.Background(), "enrollment.created", []byte(`{}`))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, "open", publisher.State())

	err := publisher.Publish(context.Background(), "enrollment.created", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, next.calls)
}

func TestBreakerPublisherPassesThrough(t *testing.T) {
	next := &flakyPublisher{}
	publisher := NewBreakerPublisher(next, Config{}, nil)

	require.NoError(t, publisher.Publish(context.Background(), "enrollment.paid", []byte(`{}`)))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "closed", publisher.State())

	require.NoError(t, publisher.Close())
	assert.True(t, next.closed)
}

func TestLogPublisherNeverFails(t *testing.T) {
	publisher := NewLogPublisher(nil)
	assert.NoError(t, publisher.Publish(context.Background(), "class_event.meeting_released", nil))
	assert.NoError(t, publisher.Close())
}
