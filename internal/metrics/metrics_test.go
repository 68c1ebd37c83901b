package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	RecordRequest(http.MethodPost, "/", http.StatusOK, 20*time.Millisecond)
	RecordFragment()
	RecordStreamError(true)
	RecordStartupAttempt(errors.New("boom"))
	ObservePublish("agent-tools", nil, time.Second)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)

	require.Contains(t, out, `blgate_gateway_requests_total{method="POST",path="/",status_code="200"}`)
	require.Contains(t, out, "blgate_gateway_stream_fragments_total")
	require.Contains(t, out, `blgate_gateway_stream_errors_total{phase="mid_stream"}`)
	require.Contains(t, out, `blgate_gateway_startup_attempts_total{result="error"}`)
	require.Contains(t, out, `blgate_publisher_publishes_total{result="success",type="agent-tools"}`)
	require.Contains(t, out, "go_goroutines")
}
