package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupExporters(t *testing.T) {
	for _, exp := range []ExporterType{ExporterTypeNone, ExporterTypeStdout, ""} {
		t.Run(string(exp), func(t *testing.T) {
			shutdown, err := Setup(context.Background(), exp)
			require.NoError(t, err)
			require.NotNil(t, shutdown)
			assert.NoError(t, shutdown(context.Background()))
			assert.NoError(t, shutdown(context.Background()), "second shutdown is a no-op")
		})
	}
}

func TestSetupUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), "carrier-pigeon")
	assert.Error(t, err)
}

func TestTransportAndHandler(t *testing.T) {
	srv := httptest.NewServer(Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), "test"))
	defer srv.Close()

	client := &http.Client{Transport: Transport(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
