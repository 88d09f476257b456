// Package gateway is the Metadata Gateway: a thin client for the field
// service REST API.
//
// # Overview
//
// Every call is a parameterized GET that carries the device identity
// (androidId, devId, imei, phoneNumber, ver). Datapoint pulls are signed:
// the query parameters are encoded in alphabetical order, then ts and h are
// appended by signing.SignQuery. Pending-files discovery, processing
// notifications and form headers are read-only or idempotent and travel
// unsigned.
//
// # Error Handling
//
// The gateway never retries. Failures are returned as:
//
//   - ErrUnavailable: connectivity problems and timeouts
//   - ErrAssignmentRequired: HTTP 403 on a datapoint pull
//   - *StatusError: any other non-2xx response
//
// Callers match them with errors.Is / errors.As.
package gateway
