// Package metrics declares the Prometheus metrics of the matcher.
//
// All collectors register with the default registry on import; the serve
// command exposes them on /metrics.
package metrics
