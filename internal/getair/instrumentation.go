package getair

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus"
)

// NewRequestMetrics returns metrics for calls to the getAir service.
// Device IDs are removed from the path label to keep its cardinality bounded.
func NewRequestMetrics(namespace, subsystem string, labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   namespace,
		Subsystem:   subsystem,
		ConstLabels: labels,
		LabelValues: func(request *http.Request, code int) (string, string, string) {
			return request.Method, metricsPath(request.URL.Path), strconv.Itoa(code)
		},
	})
}

var (
	zonePath   = regexp.MustCompile(`/devices/[1-9]\.[0-9A-Fa-f]+$`)
	systemPath = regexp.MustCompile(`/devices/[0-9A-Fa-f]+$`)
)

func metricsPath(path string) string {
	switch {
	case path == "":
		return "/"
	case zonePath.MatchString(path):
		return zonePath.ReplaceAllString(path, "/devices/zone")
	case systemPath.MatchString(path):
		return systemPath.ReplaceAllString(path, "/devices/system")
	default:
		return path
	}
}

// NewInstrumentedHTTPClient returns an http.Client that records metrics for every request.
// If rt is nil, http.DefaultTransport is used.
func NewInstrumentedHTTPClient(rt http.RoundTripper, m metrics.RequestMetrics, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: instrumentedRoundTripper(rt, m),
		Timeout:   timeout,
	}
}

func instrumentedRoundTripper(rt http.RoundTripper, m metrics.RequestMetrics) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return roundtripper.New(
		roundtripper.WithRequestMetrics(m),
		roundtripper.WithRoundTripper(rt),
	)
}
