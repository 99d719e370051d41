package kafka

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultProducerConfig(t *testing.T) {
	brokers := []string{"broker1:9092", "broker2:9092"}
	cfg := DefaultProducerConfig(brokers)

	assert.Equal(t, brokers, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
}

func TestNewProducer(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	p := NewProducer(cfg, newTestLogger())
	require.NotNil(t, p)
	defer p.Close()

	assert.Equal(t, cfg.Brokers, p.brokers)
}

func TestProducer_Close(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:9092"}), newTestLogger())
	require.NoError(t, p.Close())
}
