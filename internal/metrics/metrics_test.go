package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordersAfterInit(t *testing.T) {
	Init()

	ObserveMessage("door", ResultAccepted)
	ObserveMessage("door", ResultAccepted)
	ObserveMessage("sample", ResultRejected)
	ObserveRecord("store", ResultError)
	SetAlarm("door", true)
	SetTemperature("vaccine", 4.5)
	SetInputs(true, false)

	require.Equal(t, 2.0, testutil.ToFloat64(messagesTotal.WithLabelValues("door", ResultAccepted)))
	require.Equal(t, 1.0, testutil.ToFloat64(messagesTotal.WithLabelValues("sample", ResultRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(sinkErrors.WithLabelValues("store")))
	require.Equal(t, 1.0, testutil.ToFloat64(alarmActive.WithLabelValues("door")))
	require.Equal(t, 1.0, testutil.ToFloat64(alarmEdges.WithLabelValues("door", "raised")))
	require.Equal(t, 4.5, testutil.ToFloat64(temperature.WithLabelValues("vaccine")))
	require.Equal(t, 1.0, testutil.ToFloat64(doorOpen))
	require.Equal(t, 0.0, testutil.ToFloat64(powerOn))
}

func TestHandlerExposesMetrics(t *testing.T) {
	Init()
	IncShortSample()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "fridge_short_samples_total")
	require.Contains(t, string(body), "go_goroutines")
}
