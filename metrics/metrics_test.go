package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGateObserver(t *testing.T) {
	admitted := testutil.ToFloat64(GateDecisions.WithLabelValues("test_fn", OutcomeAdmitted))
	gated := testutil.ToFloat64(GateDecisions.WithLabelValues("test_fn", OutcomeGated))

	GateObserver{}.Gated("test_fn", true)
	GateObserver{}.Gated("test_fn", false)
	GateObserver{}.Gated("test_fn", false)

	assert.Equal(t, admitted+1, testutil.ToFloat64(GateDecisions.WithLabelValues("test_fn", OutcomeAdmitted)))
	assert.Equal(t, gated+2, testutil.ToFloat64(GateDecisions.WithLabelValues("test_fn", OutcomeGated)))
}

func TestRecordDispatchAndFailure(t *testing.T) {
	before := testutil.ToFloat64(Dispatches.WithLabelValues("test_fn"))
	RecordDispatch("test_fn", 68)
	assert.Equal(t, before+1, testutil.ToFloat64(Dispatches.WithLabelValues("test_fn")))

	failures := testutil.ToFloat64(Failures.WithLabelValues("test_error"))
	RecordFailure("test_error")
	assert.Equal(t, failures+1, testutil.ToFloat64(Failures.WithLabelValues("test_error")))

	uncommitted := testutil.ToFloat64(UncommittedDispatches.WithLabelValues("test_fn"))
	RecordUncommittedDispatch("test_fn")
	assert.Equal(t, uncommitted+1, testutil.ToFloat64(UncommittedDispatches.WithLabelValues("test_fn")))

	SetBackendHealthy(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(BackendHealthy))
	SetBackendHealthy(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(BackendHealthy))
}
