// Package errs define custom error types and utilities.
//
// Its purpose is to create specific error structures..
// (e.g. AccessError for permission failures or HTTPError for API responses)..
// to ensure the client receive meaningful, actionable, and consistent..
// error messages.
//
// Every constructor records the caller's stack so the error translator
// can report a traceback for the place the error was raised.
package errs
