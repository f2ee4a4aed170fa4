package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("should count payments and refunds separately", func(t *testing.T) {
		m := New()

		m.PaymentRecorded(20)
		m.PaymentRecorded(15)
		m.PaymentRecorded(-5)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.paymentsRecorded.WithLabelValues("payment")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsRecorded.WithLabelValues("refund")))
	})

	t.Run("should count forced closes", func(t *testing.T) {
		m := New()

		m.TripStatusChanged("ended", true)
		m.TripStatusChanged("ended", false)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.tripStatusChanges.WithLabelValues("ended")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.forcedTripCloses))
	})

	t.Run("nil metrics should be a no-op", func(t *testing.T) {
		var m *Metrics

		assert.NotPanics(t, func() {
			m.ActivityRecorded()
			m.AllowanceRecalculated()
		})
	})

	t.Run("should expose counters over http", func(t *testing.T) {
		m := New()
		m.ActivityRecorded()
		w := httptest.NewRecorder()

		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "tripsaver_trip_activities_recorded_total 1")
	})
}
