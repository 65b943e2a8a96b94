// Package prometheus exposes engine metrics as a client_golang
// [prometheus.Collector]. Values are read from the engine's snapshot on every
// scrape; nothing is registered globally.
package prometheus
