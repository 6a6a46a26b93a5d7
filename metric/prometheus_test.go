package metric

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordAdd(time.Millisecond, nil)
	c.RecordAdd(time.Millisecond, nil)
	c.RecordAdd(time.Millisecond, errors.New("dup"))
	c.RecordDelete(time.Microsecond, nil)
	c.RecordSerialize(10, 1200, time.Millisecond)
	c.RecordRestore(5, 2, time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ops.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("add", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("delete", "success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.restored.WithLabelValues("restored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.restored.WithLabelValues("skipped")))
	assert.Equal(t, 5, testutil.CollectAndCount(c.opLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(c.serialized))
}

func TestPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err)
}
