package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorFailuresTotalIncrements(t *testing.T) {
	CollectorFailuresTotal.Reset()
	CollectorFailuresTotal.WithLabelValues("lab", "goalxml").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(CollectorFailuresTotal.WithLabelValues("lab", "goalxml")))
}

func TestBuilderFailuresTotalIncrements(t *testing.T) {
	BuilderFailuresTotal.Reset()
	BuilderFailuresTotal.WithLabelValues("lab", "createHost").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(BuilderFailuresTotal.WithLabelValues("lab", "createHost")))
}

func TestQueueDropsTotalIncrements(t *testing.T) {
	QueueDropsTotal.Reset()
	QueueDropsTotal.WithLabelValues("lab").Inc()
	QueueDropsTotal.WithLabelValues("lab").Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(QueueDropsTotal.WithLabelValues("lab")))
}

func TestPlannerFailuresTotalIncrements(t *testing.T) {
	PlannerFailuresTotal.Reset()
	PlannerFailuresTotal.WithLabelValues("lab").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(PlannerFailuresTotal.WithLabelValues("lab")))
}

func TestSetupDurationObserves(t *testing.T) {
	before := testutil.CollectAndCount(SetupDuration)
	SetupDuration.WithLabelValues("lab").Observe(1.5)
	after := testutil.CollectAndCount(SetupDuration)
	assert.Greater(t, after, before-1)
}

func TestRequestsTotalIncrements(t *testing.T) {
	RequestsTotal.Reset()
	RequestsTotal.WithLabelValues("/api/getEnvironments", "200").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(RequestsTotal.WithLabelValues("/api/getEnvironments", "200")))
}
