package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p Publisher = Nop{}
	require.NoError(t, p.Publish(context.Background(), Event{Type: "x"}))
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{Type: "a", Key: "1"}))

	boom := errors.New("broker down")
	r.FailWith(boom)
	require.ErrorIs(t, r.Publish(context.Background(), Event{Type: "b"}), boom)

	got := r.Events()
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Type)
}

func TestNewKafkaPublisherValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{" ", ""}, Topic: "onboarding"}, zaptest.NewLogger(t))
	require.Error(t, err)

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestNewKafkaPublisherBuildsLazyClient(t *testing.T) {
	t.Parallel()

	// kgo connects lazily, so building against an unreachable broker succeeds.
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "onboarding"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	p.Close()
}
