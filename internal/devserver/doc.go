// Package devserver is an in-memory stand-in for the field service backend
// and its object storage. It verifies both request signatures, serves
// datapoints per survey group, records processing notifications and keeps
// uploaded objects in memory, keyed by object key so repeated uploads of
// the same file are harmless.
//
// It is used by the gateway and sync tests through httptest and is also
// runnable as cmd/devserver for manual end-to-end checks.
package devserver
