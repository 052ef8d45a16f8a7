/*
Package metrics provides Prometheus metrics collection and exposition
for bpcached.

The metrics package defines and registers gauges/counters/histograms
using the Prometheus client library, giving observability into one
cache interface's entry population, sub-index occupancy, DACS
lifecycle, and backpressure behavior. Metrics are exposed via an HTTP
endpoint for scraping, and a lightweight component-based health
registry backs /health, /ready, and /live.
*/
package metrics
