// Package metrics records import runs as Prometheus metrics.
//
// Metrics live in a private registry and are written once per run as a
// node_exporter textfile, so batch jobs can be scraped after they exit.
package metrics
