// Package app composes the server from its parts: configuration, the
// structured logger, OpenTelemetry providers, the snapshot store, the
// analytics service, and the chi router with its middleware chain. The
// cmd/server binary is a thin wrapper over this package.
package app
