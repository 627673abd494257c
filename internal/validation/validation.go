// Package validation binds request payloads and turns validator failures
// into field errors the error translator can render.
package validation
