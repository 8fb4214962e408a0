package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordGap("KLTO", "UP")
	r.RecordGap("KLTO", "UP")
	r.RecordAlertSent("telegram")
	r.RecordError("quote")
	r.RecordOpportunity("Float Squeeze", 92.5)
	r.RecordScan("premarket", 1.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.gaps.WithLabelValues("KLTO", "UP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alertsSent.WithLabelValues("telegram")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scans.WithLabelValues("premarket")))

	n, err := testutil.GatherAndCount(reg, "gapscout_edge_score")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
