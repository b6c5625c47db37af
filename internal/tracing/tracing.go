// Package tracing wires the Datadog tracer into the forecast mailer binaries.
package tracing

import (
	"net/http"
	"time"

	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"forecast-mailer/internal/config"
)

// Start starts the global tracer for component (e.g. "api", "worker") and
// returns the function that flushes and stops it.
func Start(cfg config.TracingConfig, component string) func() {
	service := cfg.Service
	if component != "" {
		service += "-" + component
	}
	tracer.Start(
		tracer.WithService(service),
		tracer.WithEnv(cfg.Env),
	)
	return tracer.Stop
}

// HTTPClient returns an *http.Client whose requests are traced.
func HTTPClient(timeout time.Duration) *http.Client {
	return httptrace.WrapClient(&http.Client{Timeout: timeout})
}
