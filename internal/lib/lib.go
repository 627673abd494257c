// Package lib groups infrastructure that does not belong to a single layer:
// background jobs (Asynq) and the Prometheus collectors.
package lib
