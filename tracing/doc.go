// Package tracing wraps OpenTelemetry so lifecycle operations (boot, fork,
// exit, wait, kill) can be traced without the scheduler importing the SDK.
// Spans are no-ops until Init or InitWithExporter installs a provider.
package tracing
