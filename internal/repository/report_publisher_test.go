package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
)

type captured struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	sent   []captured
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, captured{topic, key, value})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

type countingMetrics struct {
	publishes map[string]int
}

func (c *countingMetrics) RecordRelayAttempt(string, string)    {}
func (c *countingMetrics) RecordTier(string, string)            {}
func (c *countingMetrics) RecordReport(string, string, float64) {}
func (c *countingMetrics) RecordNarrative(string)               {}
func (c *countingMetrics) RecordPublish(result string)          { c.publishes[result]++ }

func TestKafkaReportPublisherKeysByDate(t *testing.T) {
	fp := &fakeProducer{}
	m := &countingMetrics{publishes: map[string]int{}}
	pub := NewKafkaReportPublisher(fp, "thermo.reports", m)

	report := &models.MarketReport{Date: "2024-03-15", Ratio: 31.2, Volatility: 14.5}
	require.NoError(t, pub.Publish(context.Background(), report))

	require.Len(t, fp.sent, 1)
	assert.Equal(t, "thermo.reports", fp.sent[0].topic)
	assert.Equal(t, "2024-03-15", string(fp.sent[0].key))

	b, err := json.Marshal(fp.sent[0].value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"report"`)
	assert.Contains(t, string(b), `"ratio":31.2`)
	assert.Equal(t, 1, m.publishes["ok"])

	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestKafkaReportPublisherWrapsErrors(t *testing.T) {
	fp := &fakeProducer{err: errors.New("no leader")}
	m := &countingMetrics{publishes: map[string]int{}}
	pub := NewKafkaReportPublisher(fp, "t", m)

	err := pub.Publish(context.Background(), &models.MarketReport{Date: "2024-03-15"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03-15")
	assert.Equal(t, 1, m.publishes["error"])
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), &models.MarketReport{}))
	assert.NoError(t, p.Close())
}
