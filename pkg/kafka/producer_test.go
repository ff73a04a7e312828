package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestPublishEncodesValues(t *testing.T) {
	w := &memWriter{}
	p, err := NewProducer(WithWriter(w))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "reports", []byte("2024-03-15"), map[string]int{"a": 1}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.Equal(t, "2024-03-15", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"a":1}`, string(w.msgs[0].Value))
	assert.Nil(t, w.msgs[1].Key)
	assert.Equal(t, "raw", string(w.msgs[1].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &memWriter{}
	p, err := NewProducer(WithWriter(w), WithRegisterer(reg))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "reports", nil, "x"))
	w.err = errors.New("broker down")
	require.Error(t, p.Publish(context.Background(), "reports", nil, "y"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("reports", "gzip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("reports", "gzip", "error")))
}
