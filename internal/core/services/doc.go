// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingest, delete and render coordinate through DocLocks; every
// operation opens an OpenTelemetry span.
package services
